package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// Design command flags
var (
	designsAccount string
	exportFormat   string
)

// exportPollInterval is how often an export job is polled for completion.
const exportPollInterval = 2 * time.Second

// designsCmd browses and exports designs on the design platform.
var designsCmd = &cobra.Command{
	Use:   "designs",
	Short: "Browse and export design platform designs",
}

var designsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List designs",
	RunE:  runDesignsList,
}

var designsExportCmd = &cobra.Command{
	Use:   "export <design-id>",
	Short: "Export a design and wait for the download URLs",
	Args:  requireArg("design-id"),
	RunE:  runDesignsExport,
}

func init() {
	designsCmd.PersistentFlags().StringVar(&designsAccount, "account", DefaultAccount, "Account identifier for stored credentials")
	designsExportCmd.Flags().StringVar(&exportFormat, "format", "pdf", "Export format (pdf, png, jpg)")

	designsCmd.AddCommand(designsListCmd)
	designsCmd.AddCommand(designsExportCmd)
}

func runDesignsList(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.flow.Close()

	client := a.platformClient(designsAccount)

	continuation := ""
	for {
		page, err := client.ListDesigns(cmd.Context(), continuation)
		if err != nil {
			return mapAuthErr(designsAccount, err)
		}

		for _, design := range page.Items {
			fmt.Printf("%s  %s (%d pages)\n", design.ID, design.Title, design.PageCount)
		}

		if page.Continuation == "" {
			return nil
		}
		continuation = page.Continuation
	}
}

func runDesignsExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	designID := args[0]

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.flow.Close()

	client := a.platformClient(designsAccount)

	job, err := client.CreateExport(ctx, designID, exportFormat)
	if err != nil {
		return mapAuthErr(designsAccount, err)
	}

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = fmt.Sprintf(" Exporting design %s as %s...", designID, exportFormat)
	sp.Start()
	defer sp.Stop()

	for job.Status == "in_progress" {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exportPollInterval):
		}

		job, err = client.GetExport(ctx, job.ID)
		if err != nil {
			return mapAuthErr(designsAccount, err)
		}
	}
	sp.Stop()

	if job.Status != "success" {
		return fmt.Errorf("export job %s failed: %s", job.ID, job.Error)
	}

	for _, u := range job.URLs {
		fmt.Println(u)
	}
	return nil
}
