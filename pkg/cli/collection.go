package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create <collection>",
	Aliases: []string{"0"},
	Short:   "Create a collection (no-op if it exists)",
	Args:    cobra.ExactArgs(1),
	RunE:    runCreate,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"2"},
	Short:   "List all collections",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <collection>",
	Aliases: []string{"6"},
	Short:   "Delete a collection",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

func init() {
	rootCmd.AddCommand(createCmd, listCmd, deleteCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	cmd.Printf("Creating collection: %s\n", boldCyan(name))

	created, err := service.CreateCollection(context.Background(), name)
	if err != nil {
		report(cmd, "error creating collection '"+name+"'", err)
		return nil
	}
	if !created {
		cmd.Printf("Collection '%s' already exists. Skipping creation.\n", name)
		return nil
	}
	success(cmd, "Collection '%s' created successfully.", name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	names, err := service.ListCollections(context.Background())
	if err != nil {
		report(cmd, "error getting collections", err)
		return nil
	}

	if jsonOutput {
		data, err := json.MarshalIndent(names, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	if len(names) == 0 {
		cmd.Println(yellow("No collections found. Create one first."))
		return nil
	}
	for _, name := range names {
		cmd.Printf("- %s\n", name)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	existed, err := service.DeleteCollection(context.Background(), name)
	if err != nil {
		report(cmd, "error deleting collection '"+name+"'", err)
		return nil
	}
	if !existed {
		cmd.Printf("Collection '%s' does not exist. Nothing to delete.\n", name)
		return nil
	}
	success(cmd, "Collection '%s' deleted successfully.", name)
	return nil
}
