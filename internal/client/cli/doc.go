// Package cli provides the interactive migraine journal client.
//
// It wires configuration, the on-device store, the optional server
// connection, the data facade and the migration coordinator into a
// line-oriented REPL. Typical flow: unlock with the PIN if one is set, sign
// in when remote mode is configured, then record and review episodes.
//
// Key features:
//   - Add / Edit / Delete / List / Show / Range over journal entries
//   - Statistics over a trailing window of days
//   - Export / Import of backup bundles and server-side backups
//   - One-shot migration of the local journal into a new account
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
