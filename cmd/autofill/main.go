// File: cmd/autofill/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mamamind47/dsl-autofill/cmd"
	"github.com/mamamind47/dsl-autofill/internal/accounts"
	"github.com/mamamind47/dsl-autofill/internal/observability"
	"github.com/mamamind47/dsl-autofill/internal/paths"
)

const banner = `
  +--------------------------------------+
  |  dsl-autofill                        |
  |  DSL agent portal batch submission   |
  +--------------------------------------+
`

// Allows mocking os.Exit in tests.
var osExit = os.Exit

func main() {
	defer observability.Sync()

	// Set up a context that listens for interrupt signals (SIGINT, SIGTERM)
	// for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// If arguments are passed, execute the command directly and exit.
	if len(os.Args) > 1 {
		if err := cmd.Execute(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				osExit(0) // Exit cleanly on graceful shutdown.
			}
			osExit(1)
		}
		return
	}

	runInteractive(ctx)
}

// runInteractive drives the numbered menu shown when the binary is started
// without arguments.
func runInteractive(ctx context.Context) {
	fmt.Print(banner)
	reader := bufio.NewReader(os.Stdin)

	for ctx.Err() == nil {
		fmt.Printf("\n  Account: %s\n\n", currentAccountLabel())
		fmt.Println("  [1] Sign contract")
		fmt.Println("  [2] Confirm disbursement")
		fmt.Println("  [3] Manage accounts")
		fmt.Println("  [0] Exit")
		fmt.Print("\nSelect> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			break // EOF (Ctrl+D).
		}

		switch strings.TrimSpace(line) {
		case "1":
			runCommand(ctx, "sign-contract")
		case "2":
			runCommand(ctx, "disburse")
		case "3":
			runCommand(ctx, "users")
		case "0", "exit", "quit":
			fmt.Println("Exiting.")
			return
		case "":
		default:
			fmt.Println("Unknown selection.")
		}
	}
}

// runCommand executes one subcommand on a clean command instance so flags
// never leak between menu selections.
func runCommand(ctx context.Context, args ...string) {
	// The batch commands need a configured account. Prompt for the first
	// one before starting them.
	if len(args) > 0 && args[0] != "users" && !ensureAccountConfigured() {
		return
	}

	rootCmd := cmd.NewRootCommand()
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Errors are already logged; keep the menu alive.
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nCommand aborted.")
		}
	}
}

// currentAccountLabel is shown in the menu header.
func currentAccountLabel() string {
	layout, err := paths.Resolve()
	if err != nil {
		return "(unavailable)"
	}
	store, err := accounts.Open(layout.Accounts())
	if err != nil || store.Len() == 0 {
		return "(none configured)"
	}
	acct, err := store.Current()
	if err != nil {
		return "(none selected)"
	}
	return fmt.Sprintf("%s (%s)", acct.Name, acct.Username)
}

// ensureAccountConfigured prompts for a first account when the store is
// still empty. Reports whether a batch run can proceed.
func ensureAccountConfigured() bool {
	layout, err := paths.Resolve()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Cannot locate the application directory:", err)
		return false
	}
	store, err := accounts.Open(layout.Accounts())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Cannot open the account store:", err)
		return false
	}
	menu := accounts.NewMenu(store, os.Stdin, os.Stdout)
	if err := menu.EnsureAccount(); err != nil {
		fmt.Fprintln(os.Stderr, "Could not add an account:", err)
		return false
	}
	return store.Len() > 0
}
