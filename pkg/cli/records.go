package cli

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/andrew/vecdash/pkg/models"
	"github.com/andrew/vecdash/pkg/vector"
)

// DefaultDataFile is what the load command reads
const DefaultDataFile = "mydata.json"

var getCmd = &cobra.Command{
	Use:     "get <collection>",
	Aliases: []string{"1"},
	Short:   "Print every record in a collection",
	Args:    cobra.ExactArgs(1),
	RunE:    runGet,
}

var seeCmd = &cobra.Command{
	Use:     "see <collection>",
	Aliases: []string{"7"},
	Short:   "Stream every object in a collection, with ids",
	Args:    cobra.ExactArgs(1),
	RunE:    runSee,
}

var loadCmd = &cobra.Command{
	Use:     "load <collection>",
	Aliases: []string{"3"},
	Short:   "Insert records from " + DefaultDataFile,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return loadFile(cmd, args[0], DefaultDataFile)
	},
}

var loadFileCmd = &cobra.Command{
	Use:     "load-file <collection> <file>",
	Aliases: []string{"5"},
	Short:   "Insert records from a JSON file",
	Long: `Inserts the records of a JSON file holding one object or an array of objects.
If the file does not exist two placeholder records are inserted instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return loadFile(cmd, args[0], args[1])
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert <collection> <json>",
	Short: "Insert a JSON object or array given on the command line",
	Args:  cobra.ExactArgs(2),
	RunE:  runInsert,
}

func init() {
	rootCmd.AddCommand(getCmd, seeCmd, loadCmd, loadFileCmd, insertCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	name := args[0]

	records, err := service.GetAllRecords(context.Background(), name)
	if err != nil {
		report(cmd, "error getting data from collection '"+name+"'", err)
		return nil
	}
	if len(records) == 0 && !jsonOutput {
		cmd.Printf("No data found in collection '%s'.\n", name)
		return nil
	}
	if records == nil {
		records = []models.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

func runSee(cmd *cobra.Command, args []string) error {
	name := args[0]

	count := 0
	err := service.Scan(context.Background(), name, func(obj models.Object) error {
		data, err := json.Marshal(obj.Properties)
		if err != nil {
			return err
		}
		cmd.Printf("%s %s\n", boldCyan(obj.ID), data)
		count++
		return nil
	})
	if err != nil {
		report(cmd, "error seeing data in collection '"+name+"'", err)
		return nil
	}
	cmd.Printf("%d objects in '%s'\n", count, name)
	return nil
}

func loadFile(cmd *cobra.Command, name, path string) error {
	result, err := service.LoadFromFile(context.Background(), name, path)
	printBatch(cmd, result, err)
	return nil
}

func runInsert(cmd *cobra.Command, args []string) error {
	name := args[0]

	records, err := vector.ParseRecords([]byte(args[1]))
	if err != nil {
		report(cmd, "invalid JSON format", err)
		return nil
	}

	result, err := service.AddRecords(context.Background(), name, records)
	printBatch(cmd, result, err)
	return nil
}

func printBatch(cmd *cobra.Command, result models.BatchResult, err error) {
	var partial *vector.PartialFailureError
	switch {
	case errors.As(err, &partial):
		report(cmd, "error inserting data", err)
		cmd.Printf("Inserted %d of %d attempted records\n", result.Inserted, result.Attempted)
	case err != nil:
		report(cmd, "error inserting data", err)
	default:
		success(cmd, "Successfully added all %d objects to collection '%s'.", result.Inserted, result.Collection)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err == nil {
			cmd.Println(string(data))
		}
	}
}
