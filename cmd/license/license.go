package license

import (
	_ "embed"
	"fmt"

	"github.com/spf13/cobra"
)

//go:embed LICENSE
var licenseText string

// Command creates a new cobra.Command to print the license.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "Print the license of labelgrid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), "\n"+licenseText+"\n")
			return err
		},
	}

	return cmd
}
