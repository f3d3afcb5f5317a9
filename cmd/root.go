package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"designbridge/internal/cli"
	"designbridge/pkg/logging"
)

// Exit codes for CLI commands. These follow common conventions so scripts
// can react to authentication state without parsing output.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error.
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

var verbose bool

// rootCmd represents the base command for the designbridge application.
var rootCmd = &cobra.Command{
	Use:   "designbridge",
	Short: "Connect your print workflow to the design platform",
	Long: `designbridge links a print workflow to the design platform via
delegated (OAuth) authorization. It stores the resulting credentials
encrypted on disk, renews them transparently, and exposes the platform's
folders, designs and brand templates for downstream tooling.`,
	// Handled errors should not also dump usage text.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if verbose {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)
	},
}

// SetVersion sets the version for the root command, injected at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application, called by
// main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "designbridge version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps typed errors to semantic exit codes.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *cli.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(designsCmd)
	rootCmd.AddCommand(templatesCmd)
}
