// Package store provides persistent storage for the messaging gateway using SQLite.
//
// # Data Models
//
//   - User: Known marketplace user (id, username, role). Rows are owned by the
//     external account service; the gateway treats ids as immutable foreign keys.
//   - Message: Root chat message between two users with a read flag.
//   - Reply: Threaded reply under a root Message, optionally pointing at
//     another Reply in the same thread (flat table, parent-id links).
//   - Thread: A Message plus its replies, the unit returned by the
//     conversation index.
//
// # Conversation Index
//
// GetConversation and GetAllConversations derive ordered conversation views
// from the message/reply tables on demand. Conversations are not stored
// entities; they are predicates over the two tables.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrValidation: Self-addressed message, empty content, or unknown user
//   - ErrForbidden: Actor may not perform the operation
//
// All methods accept context.Context for cancellation support.
package store
