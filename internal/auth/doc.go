// Package auth adapts the marketplace's external authentication into an
// opaque authenticated user id per request or websocket connection.
//
// Tokens are HS256 JWTs whose "sub" claim carries the user id. The HTTP
// middleware accepts either an Authorization bearer header or, for websocket
// handshakes, a token query parameter, and stores the id in the request
// context for handlers to read via UserFromContext.
//
// Nothing else about identity (passwords, registration, roles) lives here;
// that is the identity service's job.
package auth
