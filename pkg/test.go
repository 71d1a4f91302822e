package pkg

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"biasknn/pkg/metrics"
)

// LogEvaluation logs per-class metrics, the overall scores and the row-normalized
// confusion matrix.
func LogEvaluation(name string, e *metrics.Evaluation) {
	for _, result := range e.PerClass {
		log.Info().Str("Model", name).Str("Class", result.Class).
			Int("TP", result.TruePos).
			Int("FP", result.FalsePos).
			Int("FN", result.FalseNeg).
			Int("Support", result.Support).
			Float64("Precision", result.Precision).
			Float64("Recall", result.Recall).
			Float64("F1", result.F1).
			Msg("")
	}
	log.Info().Str("Model", name).
		Float64("Accuracy", e.Accuracy).
		Float64("BalancedAccuracy", e.BalancedAccuracy).
		Float64("WeightedF1", e.WeightedF1).
		Float64("MacroF1", e.MacroF1).
		Msg("")

	for i, row := range e.NormalizedConfusion() {
		log.Debug().Str("Model", name).Str("Class", e.Classes[i]).Floats64("Confusion", row).Msg("")
	}
}

// WriteConfusion writes the row-normalized confusion matrix as CSV with a header of
// predicted classes and one row per true class.
func WriteConfusion(fs afero.Fs, path string, e *metrics.Evaluation) error {
	outputFile, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("error opening output file %s: %w", path, err)
	}
	defer outputFile.Close()

	w := csv.NewWriter(outputFile)
	if err := w.Write(append([]string{"true\\predicted"}, e.Classes...)); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	for i, row := range e.NormalizedConfusion() {
		record := make([]string, 0, len(row)+1)
		record = append(record, e.Classes[i])
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'f', 4, 64))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("error writing %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

func confusionFileName(prefix, outcome string) string {
	return prefix + "-" + strings.ReplaceAll(outcome, " ", "_") + ".csv"
}
