package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func exportCmd(st *state) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <sessionID>",
		Short: "Export a session as CSV or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			switch format {
			case "csv":
				csv, err := st.app.ExportService.ExportCSV(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				data = []byte(csv)
			case "json":
				b, err := st.app.ExportService.ExportJSON(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				data = b
			default:
				return fmt.Errorf("unknown format %q: want csv or json", format)
			}

			if output != "" {
				return os.WriteFile(output, data, 0o644)
			}
			_, err := cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
