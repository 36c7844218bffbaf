package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Status(ctx context.Context) error
	List(ctx context.Context, kind string, args []string) error
	Show(ctx context.Context, kind string, args []string) error
	Delete(ctx context.Context, kind string, args []string) error
}

// runREPL reads commands line by line and dispatches them to a. It returns
// on EOF or when the user types "exit" or "quit".
//
//	Always:
//	  - help                         show available commands
//	  - status                       session, token and refresh counters
//	  - beans | recipes | equipment [page]
//	  - show <kind> <id>
//	  - exit | quit
//
//	Not logged in:
//	  - signup, login
//
//	Logged in:
//	  - whoami, delete <kind> <id>, logout
//
// Handler errors are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("coffeedia %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, status, beans, recipes, equipment, show, delete, logout, exit")
			} else {
				printlnFn("Available commands: signup, login, status, beans, recipes, equipment, show, exit")
			}

		case "signup", "register":
			err = a.Signup(ctx)

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "status":
			err = a.Status(ctx)

		case "beans", "recipes", "equipment":
			err = a.List(ctx, cmd, args)

		case "show", "delete":
			if len(args) != 2 {
				printlnFn(fmt.Sprintf("Usage: %s <beans|recipes|equipment> <id>", cmd))
				continue
			}
			if cmd == "show" {
				err = a.Show(ctx, args[0], args[1:])
			} else {
				err = a.Delete(ctx, args[0], args[1:])
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
