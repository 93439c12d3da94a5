// Package auth verifies presented credentials against a school record and
// issues role-scoped sessions.
//
// Secrets are compared in constant time so response latency never hints at
// how much of a guess was right. Issued sessions are kept in an in-memory
// token map so the HTTP layer can resolve bearer tokens back to sessions.
package auth
