package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/pktcodec/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without running any command.

Defaults and PKTCODEC_* environment overrides are applied exactly as they
would be at startup.

Examples:
  pktcodec validate -f pktcodec.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(validateConfigFile, cmd.OutOrStdout())
	},
}

var validateConfigFile string

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "file", "f", "",
		"configuration file to validate (required)")
	_ = validateCmd.MarkFlagRequired("file")
}

func runValidate(path string, out io.Writer) error {
	loaded, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(out, "INVALID: %v\n", err)
		return err
	}

	fmt.Fprintf(out, "VALID: log level %s, output %s, %d template(s)\n",
		loaded.Log.Level,
		loaded.Output.Format,
		len(loaded.Templates),
	)
	return nil
}
