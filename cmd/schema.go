package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/social-cli/internal/formats"
	"github.com/sells-group/social-cli/internal/output"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the built-in structured extraction schema",
	Long:  "Prints the schema used by --include-json when no --schema is given. Save it, edit it, and pass it back with --schema.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := output.MarshalASCII(formats.DefaultSchema(), "  ")
		if err != nil {
			return eris.Wrap(err, "schema: encode")
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
