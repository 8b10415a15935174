package cli

import (
	"context"
	"fmt"
)

// getStatus renders the prompt status, e.g. "(ada@example.com admin)".
func (a *App) getStatus() string {
	u, ok := a.authService.CurrentUser()
	if !ok {
		return ""
	}
	return fmt.Sprintf("(%s %s)", u.Email, a.landing())
}

// Root runs the REPL on the app's input until the user exits.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to authkeeper CLI (type 'help' for commands)")
	if u, ok := a.authService.CurrentUser(); ok {
		printlnFn("Signed in as", u.FullName())
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}
