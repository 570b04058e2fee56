package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/avoronova/notekeeper/internal/client/events"
	"github.com/avoronova/notekeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped
// in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for an email and password and creates an account.
// A successful registration also logs the session in. The password byte
// slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Register(ctx, email, string(password)); err != nil {
		return err
	}

	a.userName = email
	a.bus.Publish(events.Event{Name: events.Authenticated})
	fmt.Println("Success!")
	return nil
}

// Login prompts for credentials and authenticates. On success the
// orchestrator gets an auth event and runs a full reconciliation, so
// notes created on other devices appear shortly after.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Login(ctx, email, string(password)); err != nil {
		return err
	}

	a.userName = email
	a.bus.Publish(events.Event{Name: events.Authenticated})
	fmt.Println("Logged in. Local notes keep working offline; changes sync in the background.")
	return nil
}

// Logout drops the session tokens. Local notes and pending queue entries
// stay on disk and sync on the next login.
func (a *App) Logout(ctx context.Context) error {
	a.client.Logout()
	a.userName = ""
	a.bus.Publish(events.Event{Name: events.LoggedOut})
	fmt.Println("Logged out.")
	return nil
}
