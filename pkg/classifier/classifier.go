// Package classifier defines the opaque ML capability the ensemble consults and the
// backends that serve it.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"

	"DeSynth/pkg/models"
)

// ErrUnknownModel is returned when a model id has no backend
var ErrUnknownModel = errors.New("unknown model")

// Classifier is the capability the ML ensemble calls, one model at a time
type Classifier interface {
	// Models lists the model ids this classifier can serve
	Models() []string

	// Classify asks one model for the probability that the image is synthetic
	Classify(ctx context.Context, model string, data []byte) (models.Vote, error)
}

// Backend serves exactly one model
type Backend interface {
	// Name returns the model id
	Name() string

	// Classify scores the raw image bytes
	Classify(ctx context.Context, data []byte) (models.Vote, error)
}

// NewVote builds a vote, predicting AI at confidence 0.5 and above
func NewVote(model string, confidence float64) models.Vote {
	prediction := models.PredictionReal
	if confidence >= 0.5 {
		prediction = models.PredictionAI
	}
	return models.Vote{Model: model, Confidence: confidence, Prediction: prediction}
}

// ValidateVote rejects votes a backend should never produce
func ValidateVote(v models.Vote) error {
	if math.IsNaN(v.Confidence) || v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("model %s: confidence %v outside [0,1]", v.Model, v.Confidence)
	}
	if v.Prediction != models.PredictionAI && v.Prediction != models.PredictionReal {
		return fmt.Errorf("model %s: unknown prediction %q", v.Model, v.Prediction)
	}
	return nil
}

// Func adapts a scoring function to a Backend
type Func struct {
	Model string
	Score func(ctx context.Context, data []byte) (float64, error)
}

// Name returns the model id
func (f Func) Name() string { return f.Model }

// Classify calls the scoring function
func (f Func) Classify(ctx context.Context, data []byte) (models.Vote, error) {
	confidence, err := f.Score(ctx, data)
	if err != nil {
		return models.Vote{}, err
	}
	vote := NewVote(f.Model, confidence)
	if err := ValidateVote(vote); err != nil {
		return models.Vote{}, err
	}
	return vote, nil
}

// Constant is a backend that always returns the same confidence
func Constant(model string, confidence float64) Func {
	return Func{
		Model: model,
		Score: func(context.Context, []byte) (float64, error) { return confidence, nil },
	}
}
