// Package index implements the index, labels and page commands, which print
// the tables the dashboard is built from.
package index

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/dataset"
)

// outputFlags are shared by the table commands.
type outputFlags struct {
	json bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.json, "json", false, "Print JSON instead of a table")
}

// Command creates the index command that prints the item table.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		out    outputFlags
		limit  int
		sorted bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Print the sampled item table",
		Long:  "Scan the selected dataset root and print up to --sample items per label.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, _, err := loadTables(afero.NewOsFs(), settings)
			if err != nil {
				return err
			}
			if sorted {
				items = dataset.SortByPath(items)
			}
			return writeItems(cmd.OutOrStdout(), items, limit, out.json)
		},
	}

	out.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", -1, "Print at most this many rows, negative for all")
	cmd.Flags().BoolVar(&sorted, "sorted", false, "Sort rows by path instead of scan order")

	return cmd
}

// loadTables resolves the configured roots and indexes the selected version.
func loadTables(fs afero.Fs, settings *conf.Settings) (dataset.ItemTable, dataset.LabelTable, error) {
	roots, err := conf.ResolveRootDirs(fs, &settings.Dataset)
	if err != nil {
		return nil, nil, err
	}
	return dataset.IndexSettings(fs, &settings.Dataset, roots)
}

func writeItems(w io.Writer, items dataset.ItemTable, limit int, asJSON bool) error {
	rows := items.Head(limit)
	if asJSON {
		return writeJSON(w, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM_ID\tITEM_PATH\tLABEL_ID\tLABEL_NAME")
	for _, it := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ItemID, it.ItemPath, it.LabelID, it.LabelName)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s of %s items\n", humanize.Comma(int64(len(rows))), humanize.Comma(int64(len(items))))
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
