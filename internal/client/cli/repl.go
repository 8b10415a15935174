package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/client/services"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	landing() services.Area
	takeSessionEnded() bool

	Register(ctx context.Context) error
	Verify(ctx context.Context) error
	Login(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error

	ListUsers(ctx context.Context) error
	ShowUser(ctx context.Context, args []string) error
	AddUser(ctx context.Context) error
	EditUser(ctx context.Context, args []string) error
	DeleteUser(ctx context.Context, args []string) error
}

var (
	guestCommands = []string{"register", "verify", "login", "exit"}
	userCommands  = []string{"whoami", "refresh", "logout", "exit"}
	adminCommands = []string{"whoami", "refresh", "users", "user", "adduser", "edituser", "deluser", "logout", "exit"}
)

func commandsFor(area services.Area) []string {
	switch area {
	case services.AreaAdmin:
		return adminCommands
	case services.AreaDashboard:
		return userCommands
	default:
		return guestCommands
	}
}

func allowed(area services.Area, cmd string) bool {
	for _, c := range commandsFor(area) {
		if c == cmd {
			return true
		}
	}
	return false
}

// runREPL starts a simple read-eval-print loop for the authkeeper CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a' if the command belongs to the current landing
// area. The loop exits on EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - register           create an account
//	  - verify             confirm the account with the emailed code
//	  - login              authenticate
//
//	Logged in:
//	  - whoami             show the signed-in user
//	  - refresh            rotate the access token now
//	  - logout             destroy the local session
//
//	Super admin, additionally:
//	  - users              list user accounts
//	  - user <id>          show one account
//	  - adduser            create a verified account
//	  - edituser <id>      change an account
//	  - deluser <id>       delete an account
//
// help, exit and quit work everywhere. A failing command prints its error
// and leaves the REPL where it was, unless the failure ended the session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if a.takeSessionEnded() {
			printlnFn("Your session has ended. Please log in again.")
		}
		printlnFn(fmt.Sprintf("ak %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "quit" {
			cmd = "exit"
		}

		area := a.landing()
		switch {
		case cmd == "help":
			printlnFn("Available commands:", strings.Join(commandsFor(area), ", "))
			continue
		case cmd == "exit":
			printlnFn("Bye!")
			return
		case !allowed(area, cmd):
			printlnFn("Unknown command:", cmd)
			continue
		}

		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.Register(ctx)
	case "verify":
		return a.Verify(ctx)
	case "login":
		return a.Login(ctx)
	case "whoami":
		return a.WhoAmI(ctx)
	case "refresh":
		return a.Refresh(ctx)
	case "logout":
		return a.Logout(ctx)
	case "users":
		return a.ListUsers(ctx)
	case "user":
		return a.ShowUser(ctx, args)
	case "adduser":
		return a.AddUser(ctx)
	case "edituser":
		return a.EditUser(ctx, args)
	case "deluser":
		return a.DeleteUser(ctx, args)
	}
	return fmt.Errorf("unhandled command %q", cmd)
}
