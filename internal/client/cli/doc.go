// Package cli provides the interactive Coffeedia command-line client.
//
// It wires configuration, the local token store, the API client with its
// refreshing transport, the session controller and an interactive REPL.
// Typical flow: restore the previous session, then execute user commands
// until exit while the session controller keeps the tokens fresh in the
// background.
//
// Key features:
//   - Signup / Login / Logout
//   - Who am I / session status with refresh counters
//   - List and show beans, recipes and equipment
//   - Delete items the user owns
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
