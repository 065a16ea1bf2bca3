// Package cli provides the interactive ledgerctl command-line client.
//
// It wires configuration, the gRPC client and a read-eval-print loop. A
// background watcher pings the server and the prompt shows whether it is
// reachable. Commands cover account creation, login and logout, balance and
// history, transfers, settings and password changes. Type "help" at the
// prompt for the list.
package cli
