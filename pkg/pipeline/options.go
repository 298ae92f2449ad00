package pipeline

import (
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"DeSynth/pkg/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Options is the per-run configuration of an analysis. It is always passed
// explicitly; the pipeline never consults the environment.
type Options struct {
	// Disabled lists modules that report a neutral, flagged result instead of running
	Disabled []models.Module `json:"disabled" validate:"dive,oneof=visual metadata physics frequency ml provenance"`
	// Models selects classifier models; empty means every model the classifier serves
	Models []string `json:"models" validate:"unique,dive,required"`
	// Randomize varies the analysis-frame resampling between runs
	Randomize bool `json:"randomize"`
	// Seed makes a randomized run reproducible when non-zero
	Seed uint64 `json:"seed"`
}

// DefaultOptions enables every module and every model
func DefaultOptions() Options {
	return Options{}
}

// Enabled reports whether m runs
func (o Options) Enabled(m models.Module) bool {
	return !slices.Contains(o.Disabled, m)
}

// Validate checks the options before any work is done
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return &OptionsError{Err: err}
	}
	return nil
}

// OptionsError is returned when Options fail validation
type OptionsError struct {
	Err error
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("invalid options: %v", e.Err)
}

func (e *OptionsError) Unwrap() error { return e.Err }
