// Package cli provides the interactive gophauth command-line client.
//
// It wires configuration and the gRPC account client into a small REPL:
// register, verify, login, whoami, refresh, logout, logout-all and
// delete-account. Passwords are read without echo and wiped after use.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
