// -- cmd/users.go --
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mamamind47/dsl-autofill/internal/accounts"
	"github.com/mamamind47/dsl-autofill/internal/paths"
)

// newUsersCmd creates the `users` command, an interactive menu over the
// account store.
func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "Manage the portal accounts used for login",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := paths.Resolve()
			if err != nil {
				return fmt.Errorf("resolving application directory: %w", err)
			}
			if err := layout.EnsureDirs(); err != nil {
				return fmt.Errorf("preparing working directories: %w", err)
			}

			store, err := accounts.Open(layout.Accounts())
			if err != nil {
				return fmt.Errorf("opening account store: %w", err)
			}

			menu := accounts.NewMenu(store, os.Stdin, os.Stdout)
			return menu.Run()
		},
	}
}
