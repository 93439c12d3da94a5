// Package safety contains the core domain types of the campus-safety service.
//
// It defines School (the registered campus with its access secrets), Session
// (the capability handed out after a successful credential check), AlertState
// (a currently-active distress signal), AlertEvent (the immutable ledger
// record of an alert transition), and Message (a chat relay entry), together
// with the error taxonomy shared by all services.
package safety
