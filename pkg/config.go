package pkg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"biasknn/pkg/dataprep"
	"biasknn/pkg/metrics"
	"biasknn/pkg/model"
)

type Config struct {
	SparsityRatio  float64  `toml:"sparsity_ratio"`
	ExcludedStates []string `toml:"excluded_states"`

	OutlierCap float64 `toml:"outlier_cap"`
	// ShareScaling reuses the training normalization on the testing split instead of
	// fitting the testing split on its own
	ShareScaling bool `toml:"share_scaling"`

	TestRatio float64 `toml:"test_ratio"`
	Seed      int64   `toml:"seed"`

	SmoteNeighbors int   `toml:"smote_neighbors"`
	SmoteSeed      int64 `toml:"smote_seed"`

	UntunedNeighbors int               `toml:"untuned_neighbors"`
	Grid             model.Grid        `toml:"grid"`
	CVFolds          int               `toml:"cv_folds"`
	Scorings         []metrics.Scoring `toml:"scorings"`
	// Workers bounds grid search goroutines, 0 means GOMAXPROCS
	Workers int `toml:"workers"`

	// ConfusionOutput is a file name prefix for the normalized confusion matrices
	ConfusionOutput string `toml:"confusion_output"`
}

func DefaultConfig() Config {
	clean := dataprep.DefaultCleanParameters()
	return Config{
		SparsityRatio:    clean.SparsityRatio,
		ExcludedStates:   clean.ExcludedStates,
		OutlierCap:       10,
		TestRatio:        0.2,
		Seed:             100,
		SmoteNeighbors:   5,
		SmoteSeed:        100,
		UntunedNeighbors: 5,
		Grid:             model.DefaultGrid(),
		CVFolds:          5,
		Scorings:         []metrics.Scoring{metrics.WeightedF1, metrics.BalancedAccuracy},
	}
}

// LoadConfig overlays the TOML file at path on top of base. Unknown keys are rejected.
func LoadConfig(fs afero.Fs, path string, base Config) (Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return base, fmt.Errorf("error reading config %s: %w", path, err)
	}
	config := base
	meta, err := toml.Decode(string(data), &config)
	if err != nil {
		return base, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return base, fmt.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return config, nil
}

func (c Config) Validate() error {
	switch {
	case c.SparsityRatio < 0 || c.SparsityRatio >= 1:
		return fmt.Errorf("sparsity ratio %g outside [0,1)", c.SparsityRatio)
	case c.TestRatio <= 0 || c.TestRatio >= 1:
		return fmt.Errorf("test ratio %g outside (0,1)", c.TestRatio)
	case c.CVFolds < 2:
		return fmt.Errorf("at least 2 cross-validation folds required, got %d", c.CVFolds)
	case c.SmoteNeighbors < 1:
		return fmt.Errorf("smote neighbors must be positive, got %d", c.SmoteNeighbors)
	case c.UntunedNeighbors < 1:
		return fmt.Errorf("untuned neighbors must be positive, got %d", c.UntunedNeighbors)
	case len(c.Grid.Neighbors) == 0 || len(c.Grid.Weightings) == 0 || len(c.Grid.LeafSizes) == 0 || len(c.Grid.Jobs) == 0:
		return fmt.Errorf("every grid dimension needs at least one value")
	case len(c.Scorings) == 0:
		return fmt.Errorf("no scoring objective configured")
	}
	for _, w := range c.Grid.Weightings {
		if w != model.Uniform && w != model.Distance {
			return fmt.Errorf("unknown weighting %q", w)
		}
	}
	for _, s := range c.Scorings {
		if _, err := metrics.ParseScoring(string(s)); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) cleanParameters() dataprep.CleanParameters {
	return dataprep.CleanParameters{SparsityRatio: c.SparsityRatio, ExcludedStates: c.ExcludedStates}
}
