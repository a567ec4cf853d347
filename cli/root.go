package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danthegoodman1/fixturegen/exporter"
	"github.com/danthegoodman1/fixturegen/pipeline"
	"github.com/danthegoodman1/fixturegen/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ErrBadRowCount = errors.New("num_rows must be a positive integer")

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fixturegen <num_rows>",
		Short:         "Generate fixed-value CSV fixture tables",
		Long:          `Generate one single-column table per catalog entry, a combined table of all columns, and a stats table describing every export.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          parseArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			numRows, _ := ParseNumRows(args[0])
			v := viper.GetViper()

			opts := pipeline.Options{
				NumRows:     numRows,
				Backend:     pipeline.Backend(v.GetString("backend")),
				Format:      exporter.Format(v.GetString("format")),
				OutDir:      v.GetString("out-dir"),
				Upload:      v.GetBool("upload"),
				RecordStats: v.GetBool("record-stats"),
				Report:      cmd.OutOrStdout(),
			}
			_, err := pipeline.Run(cmd.Context(), opts)
			return err
		},
	}

	// a negative row count such as -5 reaches pflag as an unknown shorthand
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return utils.NewFixtureError(utils.KindConfig, "", err)
	})

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(VersionCmd())

	cmd.Flags().String("backend", string(pipeline.BackendArrow), "column synthesis backend: arrow or engine")
	cmd.Flags().String("format", string(exporter.FormatCSV), "output file format: csv or parquet")
	cmd.Flags().String("out-dir", ".", "directory the fixture files are written to")
	cmd.Flags().Bool("upload", false, "upload the generated files to S3_BUCKET_NAME")
	cmd.Flags().Bool("record-stats", false, "store the export stats in the database at CRDB_DSN")

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	return cmd
}

func initConfig() {
	viper.SetEnvPrefix("FIXTUREGEN")
	viper.AutomaticEnv()
}

func parseArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return utils.NewFixtureError(utils.KindConfig, "", fmt.Errorf("usage: %s", cmd.UseLine()))
	}
	_, err := ParseNumRows(args[0])
	return err
}

// ParseNumRows parses the row count argument, which must be a positive integer.
func ParseNumRows(arg string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || n <= 0 {
		return 0, utils.NewFixtureError(utils.KindConfig, "", fmt.Errorf("%w, got %q", ErrBadRowCount, arg))
	}
	return n, nil
}

// ExitCode is 2 for configuration errors and 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if utils.IsKind(err, utils.KindConfig) {
		return 2
	}
	return 1
}
