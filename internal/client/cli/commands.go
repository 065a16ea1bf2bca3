package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/rpc"
)

var errUsage = errors.New("wrong arguments")

func (a *App) Ping(ctx context.Context) error {
	version, err := a.api.Ping(ctx)
	if err != nil {
		a.setMode(ModeOffline)
		return err
	}
	a.setMode(ModeOnline)
	fmt.Fprintln(a.out, version)
	return nil
}

// Register prompts for credentials and a recovery method and creates the
// account. A generated recovery phrase is shown exactly once.
func (a *App) Register(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	method, err := GetSimpleText(a.reader, "Recovery method (phrase/email)", a.out)
	if err != nil {
		return err
	}

	req := &rpc.NewUserRequest{Username: username, Password: string(password), RecoveryMethod: method}
	if method == "email" {
		if req.Email, err = GetSimpleText(a.reader, "Enter email", a.out); err != nil {
			return err
		}
	}

	phrase, err := a.api.Register(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Account created.")
	if len(phrase) > 0 {
		printPhrase(a, phrase)
	} else if method == "email" {
		fmt.Fprintln(a.out, "Check your inbox to confirm the address.")
	}
	return nil
}

func printPhrase(a *App, phrase []string) {
	fmt.Fprintln(a.out, "Recovery phrase (write it down, it is not shown again):")
	fmt.Fprintln(a.out, "  "+strings.Join(phrase, " "))
}

func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}

	ttl, err := a.api.Login(ctx, username, string(password))
	if err != nil {
		return err
	}
	a.userName = username
	fmt.Fprintf(a.out, "Logged in, session valid for %s\n", ttl)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.userName = ""
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "All sessions revoked.")
	return nil
}

func (a *App) Balance(ctx context.Context) error {
	balance, err := a.api.Balance(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Balance: %d\n", balance)
	return nil
}

// Send expects "<receiver> <value>".
func (a *App) Send(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: send <receiver> <value>", errUsage)
	}
	balance, err := a.api.Send(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sent %s to %s. Balance: %d\n", args[1], args[0], balance)
	return nil
}

func (a *App) History(ctx context.Context) error {
	txs, err := a.api.Transactions(ctx)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		fmt.Fprintln(a.out, "No transactions.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tFROM\tTO\tVALUE")
	for _, t := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.Timestamp.Local().Format(time.DateTime), t.Sender, t.Receiver, t.Value)
	}
	return w.Flush()
}

func (a *App) Settings(ctx context.Context) error {
	s, err := a.api.Settings(ctx)
	if err != nil {
		return err
	}

	sms := "-"
	if s.SMSNotificationNumber != nil {
		sms = *s.SMSNotificationNumber
	}
	fmt.Fprintf(a.out, "transactionLogging:    %t\n", s.TransactionLogging)
	fmt.Fprintf(a.out, "smsNotificationNumber: %s\n", sms)
	fmt.Fprintf(a.out, "recoveryMethod:        %s\n", s.RecoveryMethod)
	if s.Email != "" {
		fmt.Fprintf(a.out, "email:                 %s (verified: %t)\n", s.Email, s.EmailVerified)
	}
	return nil
}

// Set expects key/value pairs, e.g. "set recoveryMethod email email me@example.com".
func (a *App) Set(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return fmt.Errorf("%w: set <key> <value> [<key> <value> ...]", errUsage)
	}

	patch := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		patch[args[i]] = settingValue(args[i+1])
	}

	phrase, err := a.api.ApplySettings(ctx, patch)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Settings updated.")
	if len(phrase) > 0 {
		printPhrase(a, phrase)
	}
	return nil
}

// settingValue converts a command-line word into the JSON value it stands for.
func settingValue(raw string) any {
	switch raw {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

func (a *App) ChangePassword(ctx context.Context) error {
	oldPassword, err := GetPassword(a.out, "Current password: ")
	if err != nil {
		return err
	}
	newPassword, err := GetPassword(a.out, "New password: ")
	if err != nil {
		return err
	}
	if err := a.api.ChangePassword(ctx, string(oldPassword), string(newPassword)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed.")
	return nil
}

// Confirm expects the token from the confirmation mail.
func (a *App) Confirm(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: confirm <token>", errUsage)
	}
	if err := a.api.ConfirmEmail(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Email confirmed.")
	return nil
}
