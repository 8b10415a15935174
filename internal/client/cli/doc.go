// Package cli provides the interactive authkeeper command-line client.
//
// It wires configuration, the credential store, the session client and the
// API services into a REPL. The available commands follow the landing area
// of the stored user: unauthenticated users can register, verify and log in;
// authenticated users can inspect and refresh their session; super admins
// additionally manage user accounts.
//
// A background watcher refreshes access tokens shortly before they expire.
// When a refresh fails the session ends, the credential record is cleared
// and the REPL drops back to the unauthenticated command set.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartTokenWatcher and runREPL for details.
package cli
