package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var foldersAccount string

// foldersCmd lists the account's folders on the design platform.
var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "Browse design platform folders",
}

var foldersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List folders",
	RunE:  runFoldersList,
}

func init() {
	foldersCmd.PersistentFlags().StringVar(&foldersAccount, "account", DefaultAccount, "Account identifier for stored credentials")
	foldersCmd.AddCommand(foldersListCmd)
}

func runFoldersList(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.flow.Close()

	client := a.platformClient(foldersAccount)

	continuation := ""
	for {
		page, err := client.ListFolders(cmd.Context(), continuation)
		if err != nil {
			return mapAuthErr(foldersAccount, err)
		}

		for _, folder := range page.Items {
			fmt.Printf("%s  %s\n", folder.ID, folder.Name)
		}

		if page.Continuation == "" {
			return nil
		}
		continuation = page.Continuation
	}
}
