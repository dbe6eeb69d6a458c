package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/andrew/vecdash/pkg/models"
)

// Defaults when search is called without a query or limit.
const (
	DefaultQuery       = "story"
	DefaultSearchLimit = 30
)

var searchCmd = &cobra.Command{
	Use:     "search <collection> [query] [limit]",
	Aliases: []string{"4"},
	Short:   "Semantic search in a collection",
	Long: `Finds the records nearest to the query by embedding similarity, best match first.
The query defaults to "story" and the limit to 30.`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	name := args[0]
	query := DefaultQuery
	limit := DefaultSearchLimit

	if len(args) > 1 {
		query = args[1]
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid limit %q: must be a positive integer", args[2])
		}
		limit = n
	}

	res := service.Search(context.Background(), name, query, limit)

	if jsonOutput {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	switch res.Status {
	case models.SearchFound:
		cmd.Printf("🔍 %d results for %s:\n", len(res.Records), boldCyan(query))
		for i, rec := range res.Records {
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			cmd.Printf("  [%d] %s\n", i+1, data)
		}
	case models.SearchEmpty:
		cmd.Println(yellow(res.Message))
	default:
		report(cmd, res.Message, res.Err)
	}
	return nil
}
