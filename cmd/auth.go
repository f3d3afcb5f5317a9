package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"designbridge/internal/auth"
	"designbridge/internal/cli"
	"designbridge/internal/config"
	"designbridge/internal/credstore"
	"designbridge/internal/platform"
	"designbridge/pkg/oauth"
)

// DefaultAccount is the account identifier used when --account is not
// given. Credentials are keyed per account, so multiple independent grants
// can coexist; most single-team installs only ever use this one.
const DefaultAccount = "default"

// Shared auth flags
var authAccount string

// authCmd is the parent for the auth command family.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage design platform authentication",
	Long: `Manage authentication to the design platform.

Use 'auth login' to run the browser-based OAuth flow, 'auth status' to see
stored credentials, and 'auth logout' to remove them.`,
}

func init() {
	authCmd.PersistentFlags().StringVar(&authAccount, "account", DefaultAccount, "Account identifier for stored credentials")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
}

// app wires the credential subsystem together for one command invocation.
type app struct {
	cfg        *config.Config
	store      *credstore.Store
	exchanger  *oauth.Client
	flow       *auth.Flow
	supervisor *auth.Supervisor
	httpClient *http.Client
}

// buildApp loads configuration and constructs the credential subsystem.
// It fails fast when client credentials or the encryption secret are
// missing, before any flow is started.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := credstore.NewStore(cfg.CredentialsFile, cfg.EncryptionSecret)
	if err != nil {
		return nil, err
	}

	// One HTTP client with the configured timeout, shared by the token
	// endpoint and platform calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	exchanger := oauth.NewClient(oauth.WithHTTPClient(httpClient))

	return &app{
		cfg:        cfg,
		store:      store,
		exchanger:  exchanger,
		flow:       auth.NewFlow(cfg.OAuth(), exchanger, store),
		supervisor: auth.NewSupervisor(cfg.OAuth(), exchanger, store),
		httpClient: httpClient,
	}, nil
}

// platformClient builds the API client for an account, reusing the shared
// HTTP client so the configured timeout applies to platform calls too.
func (a *app) platformClient(accountID string) *platform.Client {
	return platform.NewClient(a.cfg.APIBaseURL, accountID, a.supervisor, platform.WithHTTPClient(a.httpClient))
}

// mapAuthErr converts supervisor sentinels into the typed CLI errors the
// root command maps to exit codes.
func mapAuthErr(account string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, auth.ErrNotAuthenticated) {
		return &cli.AuthRequiredError{Account: account}
	}
	if errors.Is(err, auth.ErrReauthRequired) {
		return &cli.AuthExpiredError{Account: account, Reason: err}
	}
	return err
}

// openBrowser opens url in the user's default browser. Failure is not
// fatal; the login command prints the URL as a fallback.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// requireArg returns a cobra args validator demanding exactly one named
// positional argument.
func requireArg(name string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one %s argument", name)
		}
		return nil
	}
}
