package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var templatesAccount string

// templatesCmd lists the account's brand templates on the design platform.
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Browse design platform brand templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List brand templates",
	RunE:  runTemplatesList,
}

func init() {
	templatesCmd.PersistentFlags().StringVar(&templatesAccount, "account", DefaultAccount, "Account identifier for stored credentials")
	templatesCmd.AddCommand(templatesListCmd)
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.flow.Close()

	client := a.platformClient(templatesAccount)

	continuation := ""
	for {
		page, err := client.ListBrandTemplates(cmd.Context(), continuation)
		if err != nil {
			return mapAuthErr(templatesAccount, err)
		}

		for _, tpl := range page.Items {
			fmt.Printf("%s  %s\n", tpl.ID, tpl.Title)
		}

		if page.Continuation == "" {
			return nil
		}
		continuation = page.Continuation
	}
}
