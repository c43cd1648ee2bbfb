// Package gate decides whether a model version is fit for release.
package gate

import (
	"github.com/cardops/shiplane/pkg/domain"
)

// DefaultThreshold applies when the pipeline configuration leaves
// the quality threshold unset.
const DefaultThreshold = 0.90

// Evaluate reports whether value clears threshold.
// The threshold is inclusive, so a value exactly at it passes.
func Evaluate(value float64, threshold float64) bool {
	return value >= threshold
}

// Assess builds the evaluation record of a resolved model version.
func Assess(
	modelName string, stageLabel string, version string, modelRunId string,
	metric string, value float64, threshold float64,
) domain.ModelEvaluation {
	return domain.ModelEvaluation{
		ModelName:  modelName,
		StageLabel: stageLabel,
		Version:    version,
		ModelRunId: modelRunId,
		Metric:     metric,
		Value:      value,
		Threshold:  threshold,
		Pass:       Evaluate(value, threshold),
	}
}
