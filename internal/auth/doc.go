// Package auth provides user registration and credential verification,
// session management, and the HTTP middleware that establishes the
// current user for a request.
//
// Passwords are stored as bcrypt hashes, never in plain text. Session
// tokens are opaque, cryptographically random bearer credentials kept
// in a SQLite-backed store, so logins survive process restarts.
package auth
