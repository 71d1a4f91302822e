package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"biasknn/pkg"
	"biasknn/pkg/metrics"
)

func RunCommand(fs afero.Fs) *cobra.Command {

	var inputFile string
	var configFile string
	var scoring string
	config := pkg.DefaultConfig()

	var cmd = &cobra.Command{
		Use:   "run -i incidents.csv",
		Short: "Cleans the incident data, trains the nearest-neighbour classifiers and reports their test scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			effective, err := resolveConfig(fs, configFile, config, cmd.Flags())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("scoring") {
				s, err := metrics.ParseScoring(scoring)
				if err != nil {
					return err
				}
				effective.Scorings = []metrics.Scoring{s}
			}
			_, err = pkg.Run(context.Background(), fs, inputFile, effective)
			return err
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "name of incident file")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "TOML configuration file (optional)")
	cmd.Flags().Float64VarP(&config.SparsityRatio, "sparsity-ratio", "", config.SparsityRatio, "minimum share of rows a level needs to be kept")
	cmd.Flags().Float64VarP(&config.OutlierCap, "outlier-cap", "", config.OutlierCap, "numeric values above this are replaced by the median of such values")
	cmd.Flags().BoolVarP(&config.ShareScaling, "share-scaling", "", config.ShareScaling, "normalize the testing split with training statistics")
	cmd.Flags().Float64VarP(&config.TestRatio, "test-ratio", "t", config.TestRatio, "share of rows held out for testing")
	cmd.Flags().Int64VarP(&config.Seed, "random-seed", "x", config.Seed, "random seed of the split")
	cmd.Flags().IntVarP(&config.SmoteNeighbors, "smote-neighbors", "", config.SmoteNeighbors, "neighbourhood size of minority oversampling")
	cmd.Flags().IntVarP(&config.UntunedNeighbors, "neighbors", "k", config.UntunedNeighbors, "neighbour count of the untuned classifier")
	cmd.Flags().IntVarP(&config.CVFolds, "cv-folds", "f", config.CVFolds, "cross-validation folds of the grid search")
	cmd.Flags().IntVarP(&config.Workers, "workers", "w", config.Workers, "grid search goroutines, 0 for one per CPU")
	cmd.Flags().StringVarP(&scoring, "scoring", "s", "", "only tune for this objective: weighted_f1 or balanced_accuracy")
	cmd.Flags().StringVarP(&config.ConfusionOutput, "confusion-output", "o", "", "file name prefix for normalized confusion matrices (optional)")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func CleanCommand(fs afero.Fs) *cobra.Command {
	var inputFile string
	var outputFile string
	var configFile string
	config := pkg.DefaultConfig()

	var cmd = &cobra.Command{
		Use:   "clean -i incidents.csv -o cleaned.csv",
		Short: "Writes the cleaned and recoded incidents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			effective, err := resolveConfig(fs, configFile, config, cmd.Flags())
			if err != nil {
				return err
			}
			return pkg.Clean(fs, inputFile, outputFile, effective)
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "name of incident file")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "name of output file")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "TOML configuration file (optional)")
	cmd.Flags().Float64VarP(&config.SparsityRatio, "sparsity-ratio", "", config.SparsityRatio, "minimum share of rows a level needs to be kept")

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// resolveConfig layers defaults, the optional config file and explicitly set flags.
func resolveConfig(fs afero.Fs, configFile string, flagged pkg.Config, flags *pflag.FlagSet) (pkg.Config, error) {
	if configFile == "" {
		return flagged, nil
	}
	config, err := pkg.LoadConfig(fs, configFile, pkg.DefaultConfig())
	if err != nil {
		return config, err
	}
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "sparsity-ratio":
			config.SparsityRatio = flagged.SparsityRatio
		case "outlier-cap":
			config.OutlierCap = flagged.OutlierCap
		case "share-scaling":
			config.ShareScaling = flagged.ShareScaling
		case "test-ratio":
			config.TestRatio = flagged.TestRatio
		case "random-seed":
			config.Seed = flagged.Seed
		case "smote-neighbors":
			config.SmoteNeighbors = flagged.SmoteNeighbors
		case "neighbors":
			config.UntunedNeighbors = flagged.UntunedNeighbors
		case "cv-folds":
			config.CVFolds = flagged.CVFolds
		case "workers":
			config.Workers = flagged.Workers
		case "confusion-output":
			config.ConfusionOutput = flagged.ConfusionOutput
		}
	})
	return config, nil
}

var logLevel string
var logFormat string

func main() {

	Main := &cobra.Command{Use: "biasknn", PersistentPreRunE: setupLogging, SilenceUsage: true}

	Main.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: info error or debug")
	Main.PersistentFlags().StringVarP(&logFormat, "log-format", "", "pretty", "Logging format: pretty or json")

	fs := afero.NewOsFs()
	Main.AddCommand(RunCommand(fs))
	Main.AddCommand(CleanCommand(fs))

	if err := Main.Execute(); err != nil {
		log.Error().Err(err).Msg("")
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {

	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		return fmt.Errorf("invalid logging level %q", logLevel)
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging()
	case "json":
	default:
		return fmt.Errorf("invalid log format %q", logFormat)
	}
	return nil
}

func setupPrettyLogging() {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}

	}
	log.Logger = log.Output(writer)

}
