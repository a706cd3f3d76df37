package index

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/dataset"
)

// LabelsCommand creates the labels command that prints the label table with
// per-label counts.
func LabelsCommand(settings *conf.Settings) *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Print the label table with item counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, labels, err := loadTables(afero.NewOsFs(), settings)
			if err != nil {
				return err
			}
			return writeLabels(cmd.OutOrStdout(), dataset.CountsForLabels(items, labels), out.json)
		},
	}

	out.register(cmd)
	return cmd
}

func writeLabels(w io.Writer, counts []dataset.LabelCount, asJSON bool) error {
	if asJSON {
		if counts == nil {
			counts = []dataset.LabelCount{}
		}
		return writeJSON(w, counts)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tLABEL_ID\tLABEL_NAME\tITEMS")
	for i, c := range counts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, c.LabelID, c.LabelName, humanize.Comma(int64(c.Count)))
	}
	return tw.Flush()
}
