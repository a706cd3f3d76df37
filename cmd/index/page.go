package index

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/dataset"
	"github.com/tphakala/labelgrid/internal/errors"
)

// PageCommand creates the page command that prints one label's paths and
// names.
func PageCommand(settings *conf.Settings) *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:   "page <index|label_id>",
		Short: "Print the paths and names of one label page",
		Long:  "Print the items of one page. A page is addressed by its index or by the label id it shows.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, labels, err := loadTables(afero.NewOsFs(), settings)
			if err != nil {
				return err
			}
			page, err := selectPage(items, labels, args[0])
			if err != nil {
				return err
			}
			return writePage(cmd.OutOrStdout(), page, out.json)
		},
	}

	out.register(cmd)
	return cmd
}

// selectPage resolves arg as a page index, falling back to a label id.
func selectPage(items dataset.ItemTable, labels dataset.LabelTable, arg string) (dataset.Page, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		var ok bool
		if index, ok = dataset.FindPage(labels, arg); !ok {
			return dataset.Page{}, errors.Newf("no page shows label %q", arg).
				Category(errors.CategoryNotFound).
				Context("label_id", arg).
				Build()
		}
	}
	return dataset.SelectPage(items, labels, index)
}

func writePage(w io.Writer, page dataset.Page, asJSON bool) error {
	if asJSON {
		return writeJSON(w, page)
	}

	if _, err := fmt.Fprintf(w, "page %d: %s (%s)\n", page.Index, page.LabelName, page.LabelID); err != nil {
		return err
	}
	for i, path := range page.Paths {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", path, page.Names[i]); err != nil {
			return err
		}
	}
	return nil
}
