package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// authLogoutCmd represents the auth logout command.
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored design platform credentials",
	Long: `Remove the stored credentials for an account.

The encrypted record is deleted from disk. The grant itself is not revoked
at the provider; revoke it from the platform's connected-apps settings if
needed.`,
	RunE: runAuthLogout,
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.flow.Close()

	has, err := a.store.HasToken(authAccount)
	if err != nil {
		return err
	}
	if !has {
		fmt.Printf("No stored credentials for account %q.\n", authAccount)
		return nil
	}

	if err := a.store.DeleteToken(authAccount); err != nil {
		return err
	}

	fmt.Printf("Logged out account %q.\n", authAccount)
	return nil
}
