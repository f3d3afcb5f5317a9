package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"designbridge/internal/auth"
)

// minAccountColumnWidth keeps the status columns aligned for typical
// account identifiers.
const minAccountColumnWidth = 16

// authStatusCmd represents the auth status command.
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show the stored credentials for all accounts: whether each access token
is valid, near expiry, or expired, and which scopes were granted.`,
	RunE: runAuthStatus,
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.flow.Close()

	accounts, err := a.store.ListAccounts()
	if err != nil {
		return err
	}

	if len(accounts) == 0 {
		fmt.Println("No stored credentials. Run 'designbridge auth login' to connect.")
		return nil
	}

	fmt.Printf("%-*s  %-12s  %-20s  %s\n", minAccountColumnWidth, "ACCOUNT", "STATUS", "EXPIRES", "SCOPES")

	now := time.Now()
	for _, accountID := range accounts {
		rec, err := a.store.GetToken(accountID)
		if err != nil {
			return err
		}
		if rec == nil {
			continue
		}

		expiresAt := time.UnixMilli(rec.ExpiresAt)
		var status, expires string
		switch {
		case now.After(expiresAt):
			status = text.FgRed.Sprint("expired")
			expires = expiresAt.Format(time.RFC3339)
		case now.Add(auth.RefreshBuffer).After(expiresAt):
			status = text.FgYellow.Sprint("near expiry")
			expires = fmt.Sprintf("in %s", time.Until(expiresAt).Round(time.Second))
		default:
			status = text.FgGreen.Sprint("valid")
			expires = fmt.Sprintf("in %s", time.Until(expiresAt).Round(time.Second))
		}

		fmt.Printf("%-*s  %-12s  %-20s  %s\n", minAccountColumnWidth, accountID, status, expires, rec.Scope)
	}

	return nil
}
