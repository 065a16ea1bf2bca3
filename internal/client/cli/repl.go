package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. App satisfies it; tests
// provide a stub.
type execIface interface {
	isLoggedIn() bool
	Ping(ctx context.Context) error
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Balance(ctx context.Context) error
	Send(ctx context.Context, args []string) error
	History(ctx context.Context) error
	Settings(ctx context.Context) error
	Set(ctx context.Context, args []string) error
	ChangePassword(ctx context.Context) error
	Confirm(ctx context.Context, args []string) error
}

// runREPL reads commands line by line and dispatches them to a. It returns
// on end of input or when the user types "exit" or "quit". Command errors
// are printed and the loop continues.
//
//	Always:
//	  - help, ping, exit | quit
//
//	Not logged in:
//	  - register, login, confirm <token>
//
//	Logged in:
//	  - balance, send <receiver> <value>, history
//	  - settings, set <key> <value> ...
//	  - passwd, logout
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("ledger %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				printlnFn("error:", err)
			}
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: balance, send, history, settings, set, passwd, logout, ping, exit")
			} else {
				printlnFn("Available commands: register, login, confirm, ping, exit")
			}
		case "ping":
			err = a.Ping(ctx)
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "balance":
			err = a.Balance(ctx)
		case "send":
			err = a.Send(ctx, args)
		case "history":
			err = a.History(ctx)
		case "settings":
			err = a.Settings(ctx)
		case "set":
			err = a.Set(ctx, args)
		case "passwd":
			err = a.ChangePassword(ctx)
		case "confirm":
			err = a.Confirm(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("error:", err)
		}
	}
}
