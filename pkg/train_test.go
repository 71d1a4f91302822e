package pkg

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"biasknn/pkg/dataprep"
	"biasknn/pkg/errs"
	"biasknn/pkg/io"
	"biasknn/pkg/io/iotest"
	"biasknn/pkg/metrics"
	"biasknn/pkg/model"
)

func writeIncidents(t *testing.T, fs afero.Fs, path string, records []io.Incident) {
	require.NoError(t, io.SaveIncidents(fs, path, records))
}

func TestRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeIncidents(t, fs, "incidents.csv", append(iotest.Incidents(iotest.DefaultSizes...), iotest.Noise(1000)...))

	config := DefaultConfig()
	config.Workers = 2
	config.ConfusionOutput = "confusion"

	experiment, err := Run(context.Background(), fs, "incidents.csv", config)
	require.NoError(t, err)
	// 8+6+4+4+3+2 rows are held out
	require.Equal(t, 27, experiment.TestRows)
	require.Equal(t, 110, experiment.TrainRows)
	// every class is oversampled to the 32 training rows of the largest one
	require.Equal(t, 6*32, experiment.BalancedRows)
	require.Equal(t, "total_offender_count", experiment.Columns[0])

	require.Equal(t, 3, len(experiment.Outcomes))
	require.Equal(t, "untuned", experiment.Outcomes[0].Name)
	require.True(t, math.IsNaN(experiment.Outcomes[0].CVScore))
	require.Equal(t, 5, experiment.Outcomes[0].Params.Neighbors)
	require.Equal(t, "tuned for weighted_f1", experiment.Outcomes[1].Name)
	require.Equal(t, "tuned for balanced_accuracy", experiment.Outcomes[2].Name)

	for _, o := range experiment.Outcomes {
		e := o.Evaluation
		require.Equal(t, dataprep.BiasCategories, e.Classes)
		total := 0
		for _, row := range e.Confusion {
			for _, v := range row {
				total += v
			}
		}
		require.Equal(t, 27, total)
		require.GreaterOrEqual(t, e.Accuracy, 0.0)
		require.LessOrEqual(t, e.Accuracy, 1.0)
		if o.Name != "untuned" {
			require.Contains(t, []int{2, 3, 4}, o.Params.Neighbors)
			require.False(t, math.IsInf(o.CVScore, 0))
		}

		file, err := fs.Open(confusionFileName("confusion", o.Name))
		require.NoError(t, err)
		rows, err := csv.NewReader(file).ReadAll()
		require.NoError(t, err)
		require.NoError(t, file.Close())
		require.Equal(t, 7, len(rows))
		require.Equal(t, append([]string{"true\\predicted"}, dataprep.BiasCategories...), rows[0])
	}
}

func TestRun_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := Run(context.Background(), fs, "absent.csv", DefaultConfig())
	require.Error(t, err)

	invalid := DefaultConfig()
	invalid.TestRatio = 0
	_, err = Run(context.Background(), fs, "absent.csv", invalid)
	require.Error(t, err)

	// a single anti-disability incident cannot be split
	records := iotest.Incidents(1, 30)
	writeIncidents(t, fs, "small.csv", records)
	_, err = Run(context.Background(), fs, "small.csv", DefaultConfig())
	var split *errs.InvalidSplitError
	require.True(t, errors.As(err, &split))
	require.Equal(t, dataprep.AntiDisability, split.Class)

	// four training rows cannot feed five neighbours
	writeIncidents(t, fs, "sparse.csv", iotest.Incidents(5, 30))
	_, err = Run(context.Background(), fs, "sparse.csv", DefaultConfig())
	var insufficient *errs.InsufficientNeighborsError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, 4, insufficient.Count)
}

func TestClean(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeIncidents(t, fs, "incidents.csv", append(iotest.Incidents(iotest.DefaultSizes...), iotest.Noise(1000)...))

	require.NoError(t, Clean(fs, "incidents.csv", "cleaned.csv", DefaultConfig()))
	cleaned, err := io.LoadIncidents(fs, "cleaned.csv")
	require.NoError(t, err)
	require.Equal(t, 137, len(cleaned))
	for _, r := range cleaned {
		require.Contains(t, dataprep.BiasCategories, r.BiasDesc)
	}
}

func TestLoadConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := `
test_ratio = 0.25
excluded_states = ["Guam", "Puerto Rico"]
scorings = ["balanced_accuracy"]

[grid]
neighbors = [3, 7]
weightings = ["uniform", "distance"]
`
	require.NoError(t, afero.WriteFile(fs, "biasknn.toml", []byte(content), 0644))

	config, err := LoadConfig(fs, "biasknn.toml", DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, config.Validate())
	require.Equal(t, 0.25, config.TestRatio)
	require.Equal(t, []string{"Guam", "Puerto Rico"}, config.ExcludedStates)
	require.Equal(t, []metrics.Scoring{metrics.BalancedAccuracy}, config.Scorings)
	require.Equal(t, []int{3, 7}, config.Grid.Neighbors)
	require.Equal(t, []int{5, 15, 30}, config.Grid.LeafSizes)
	require.Equal(t, 5, config.CVFolds)

	require.NoError(t, afero.WriteFile(fs, "unknown.toml", []byte("test_ratio = 0.3\nneighbours = 4\n"), 0644))
	_, err = LoadConfig(fs, "unknown.toml", DefaultConfig())
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "neighbours"))

	require.NoError(t, afero.WriteFile(fs, "broken.toml", []byte("test_ratio = \n"), 0644))
	_, err = LoadConfig(fs, "broken.toml", DefaultConfig())
	require.Error(t, err)

	_, err = LoadConfig(fs, "absent.toml", DefaultConfig())
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []func(c *Config){
		func(c *Config) { c.TestRatio = 1 },
		func(c *Config) { c.SparsityRatio = -0.1 },
		func(c *Config) { c.CVFolds = 1 },
		func(c *Config) { c.SmoteNeighbors = 0 },
		func(c *Config) { c.UntunedNeighbors = 0 },
		func(c *Config) { c.Grid.LeafSizes = nil },
		func(c *Config) { c.Grid.Weightings = []model.Weighting{"closest"} },
		func(c *Config) { c.Scorings = nil },
		func(c *Config) { c.Scorings = []metrics.Scoring{"roc_auc"} },
	}
	for i, mutate := range tests {
		c := DefaultConfig()
		mutate(&c)
		require.Error(t, c.Validate(), "case %d", i)
	}
}
