package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"designbridge/internal/auth"
	"designbridge/internal/cli"
)

// Login-specific flags
var loginNoBrowser bool

// authLoginCmd represents the auth login command.
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate to the design platform",
	Long: `Authenticate to the design platform using the browser-based OAuth flow.

A local callback server receives the redirect, the authorization code is
exchanged for tokens, and the credentials are stored encrypted on disk.

Examples:
  designbridge auth login                     # Authenticate the default account
  designbridge auth login --account studio-b  # Authenticate a named account
  designbridge auth login --no-browser        # Print the URL instead of opening a browser`,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.flow.Close()

	// The callback server must be listening before the browser opens.
	callback := auth.NewCallbackServer(a.cfg.CallbackPort)
	if _, err := callback.Start(ctx); err != nil {
		return &cli.AuthFailedError{Account: authAccount, Reason: err}
	}
	defer callback.Stop()

	authURL, attempt, err := a.flow.Begin(authAccount)
	if err != nil {
		return &cli.AuthFailedError{Account: authAccount, Reason: err}
	}

	if loginNoBrowser {
		fmt.Printf("Open this URL in your browser to authorize:\n\n  %s\n\n", authURL)
	} else {
		fmt.Println("Opening your browser to authorize designbridge...")
		if err := openBrowser(authURL); err != nil {
			fmt.Printf("Could not open a browser. Open this URL manually:\n\n  %s\n\n", authURL)
		}
	}

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " Waiting for authorization in the browser..."
	sp.Start()

	waitCtx, cancel := context.WithTimeout(ctx, auth.CallbackTimeout)
	defer cancel()

	result, err := callback.WaitForCallback(waitCtx)
	sp.Stop()
	if err != nil {
		return &cli.AuthFailedError{Account: authAccount, Reason: err}
	}

	if result.IsError() {
		return &cli.AuthFailedError{
			Account: authAccount,
			Reason:  fmt.Errorf("authorization denied: %s (%s)", result.Error, result.ErrorDescription),
		}
	}

	// State validation happens inside Complete, before any token exchange.
	rec, err := a.flow.Complete(ctx, result.State, result.Code)
	if err != nil {
		return &cli.AuthFailedError{Account: authAccount, Reason: err}
	}

	expiresIn := time.Until(time.UnixMilli(rec.ExpiresAt)).Round(time.Second)
	fmt.Printf("Authenticated account %q (attempt %s). Access token valid for %s.\n",
		rec.AccountID, attempt.ID, expiresIn)
	return nil
}
