package pkg

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"biasknn/pkg/dataprep"
	"biasknn/pkg/features"
	"biasknn/pkg/io"
	"biasknn/pkg/metrics"
	"biasknn/pkg/model"
)

// Outcome is one classifier evaluated on the testing split.
type Outcome struct {
	Name   string
	Params model.Params
	// CVScore is the best cross-validation score, NaN for the untuned classifier
	CVScore    float64
	Evaluation *metrics.Evaluation
}

type Experiment struct {
	TrainRows    int
	BalancedRows int
	TestRows     int
	Columns      []string
	Outcomes     []Outcome
}

// prepared holds the model-ready training and testing data.
type prepared struct {
	trainX      *features.Matrix
	trainLabels []string
	testX       *features.Matrix
	testLabels  []string
	balancedX   *features.Matrix
	balancedY   []string
}

// Run executes the whole experiment on the incident file: cleaning, stratified split,
// normalization, encoding, oversampling, then an untuned classifier and one grid-searched
// classifier per configured scoring, each evaluated on the testing split.
func Run(ctx context.Context, fs afero.Fs, inputFile string, config Config) (*Experiment, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	records, err := io.LoadIncidents(fs, inputFile)
	if err != nil {
		return nil, fmt.Errorf("error loading incidents from %s: %w", inputFile, err)
	}
	cleaned, err := dataprep.NewCleaner(config.cleanParameters()).Clean(records)
	if err != nil {
		return nil, errors.Wrap(err, "cleaning incidents")
	}
	data, err := prepare(cleaned, config)
	if err != nil {
		return nil, errors.Wrap(err, "preparing features")
	}

	experiment := &Experiment{
		TrainRows:    data.trainX.Rows(),
		BalancedRows: data.balancedX.Rows(),
		TestRows:     data.testX.Rows(),
		Columns:      data.trainX.Columns,
	}

	untuned := model.DefaultParams()
	untuned.Neighbors = config.UntunedNeighbors
	knn := model.NewKNN(untuned)
	if err := knn.Fit(data.balancedX.Data, data.balancedY); err != nil {
		return nil, err
	}
	outcome, err := evaluateOn(knn, "untuned", math.NaN(), data)
	if err != nil {
		return nil, err
	}
	experiment.Outcomes = append(experiment.Outcomes, outcome)

	for _, scoring := range config.Scorings {
		search, err := model.GridSearch(ctx, data.balancedX.Data, data.balancedY, config.Grid, config.CVFolds, scoring, config.Workers)
		if err != nil {
			return nil, errors.Wrapf(err, "grid search for %s", scoring)
		}
		log.Info().Str("Scoring", string(scoring)).Float64("BestScore", search.BestScore).Str("BestParams", search.Best.String()).Msg("Grid search finished")
		tuned, err := search.Refit(data.balancedX.Data, data.balancedY)
		if err != nil {
			return nil, err
		}
		outcome, err := evaluateOn(tuned, "tuned for "+string(scoring), search.BestScore, data)
		if err != nil {
			return nil, err
		}
		experiment.Outcomes = append(experiment.Outcomes, outcome)
	}

	for _, o := range experiment.Outcomes {
		LogEvaluation(o.Name, o.Evaluation)
		if config.ConfusionOutput != "" {
			if err := WriteConfusion(fs, confusionFileName(config.ConfusionOutput, o.Name), o.Evaluation); err != nil {
				return nil, err
			}
		}
	}
	return experiment, nil
}

func prepare(cleaned []io.Incident, config Config) (*prepared, error) {
	labels := io.Labels(cleaned)
	trainIndices, testIndices, err := io.NewDataSet(labels, config.Seed).StratifiedSplit(config.TestRatio)
	if err != nil {
		return nil, errors.Wrap(err, "splitting incidents")
	}
	train, test := io.Select(cleaned, trainIndices), io.Select(cleaned, testIndices)
	log.Info().Int("Train", len(train)).Int("Test", len(test)).Msg("Split incidents")

	trainNormalizer := features.NewNormalizer(config.OutlierCap, io.NumericColumns)
	trainNumeric, err := trainNormalizer.FitTransform(train)
	if err != nil {
		return nil, err
	}
	testNormalizer := trainNormalizer
	if !config.ShareScaling {
		testNormalizer = features.NewNormalizer(config.OutlierCap, io.NumericColumns)
		if err := testNormalizer.Fit(test); err != nil {
			return nil, err
		}
	}
	testNumeric, err := testNormalizer.Transform(test)
	if err != nil {
		return nil, err
	}

	encoder := features.NewEncoder(io.NumericColumns, io.CategoricalColumns)
	if err := encoder.Fit(cleaned); err != nil {
		return nil, err
	}
	p := &prepared{trainLabels: io.Labels(train), testLabels: io.Labels(test)}
	if p.trainX, err = encoder.Transform(train, trainNumeric); err != nil {
		return nil, err
	}
	if p.testX, err = encoder.Transform(test, testNumeric); err != nil {
		return nil, err
	}
	log.Info().Int("Columns", len(p.trainX.Columns)).Msg("Encoded features")

	balancer := features.NewBalancer(config.SmoteNeighbors, config.SmoteSeed)
	balanced, balancedLabels, err := balancer.Resample(p.trainX.Data, p.trainLabels)
	if err != nil {
		return nil, errors.Wrap(err, "balancing training classes")
	}
	p.balancedX = &features.Matrix{Columns: p.trainX.Columns, Data: balanced}
	p.balancedY = balancedLabels
	log.Info().Int("Before", len(p.trainLabels)).Int("After", len(balancedLabels)).Msg("Balanced training classes")
	return p, nil
}

func evaluateOn(knn *model.KNN, name string, cvScore float64, data *prepared) (Outcome, error) {
	predicted, err := knn.Predict(data.testX.Data)
	if err != nil {
		return Outcome{}, errors.Wrapf(err, "predicting with %s classifier", name)
	}
	evaluation, err := metrics.Evaluate(data.testLabels, predicted, nil)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Name: name, Params: knn.Params, CVScore: cvScore, Evaluation: evaluation}, nil
}

// Clean writes the cleaned, recoded incidents to outputFile.
func Clean(fs afero.Fs, inputFile, outputFile string, config Config) error {
	records, err := io.LoadIncidents(fs, inputFile)
	if err != nil {
		return fmt.Errorf("error loading incidents from %s: %w", inputFile, err)
	}
	cleaned, err := dataprep.NewCleaner(config.cleanParameters()).Clean(records)
	if err != nil {
		return err
	}
	return io.SaveIncidents(fs, outputFile, cleaned)
}
