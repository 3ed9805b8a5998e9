// Package api exposes the messaging subsystem over HTTP.
//
// # Endpoints
//
// Authenticated (bearer token):
//
//	GET  /api/messages                          all conversations for the caller
//	POST /api/messages                          create a message, or a reply via reply_to fallback
//	GET  /api/messages/{user_id}                conversation with one counterpart
//	POST /api/messages/{message_id}/replies     reply within a thread (participants only)
//	POST /api/messages/{user_id}/mark-read      bulk mark-read of that counterpart's messages
//	GET  /api/messages/{user_id}/unread         unread count from that counterpart
//	GET  /ws/chat/{customer_id}/{caregiver_id}  websocket upgrade into a live session
//
// Open:
//
//	GET /health
//	GET /health/ready
//
// Failures are structured {"error": "..."} bodies with standard statuses.
// No request failure is fatal to the process or to other sessions.
package api
