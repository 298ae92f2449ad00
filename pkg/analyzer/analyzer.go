package analyzer

import (
	"context"

	"DeSynth/pkg/models"
	"DeSynth/pkg/standardize"
)

/*
analyzer.go contains the interface and base implementation for evidence modules.
Analyzer: interface every module implements; it turns one Input into one ModuleResult.
Input: the standardized image, the original bytes and the run's model selection.
BaseAnalyzer: struct carrying the module identity and description.
Registry (registry.go): holds the analyzers of a pipeline keyed by module.
*/

// Input is what every analyzer receives. None of its fields may be modified.
type Input struct {
	Image *standardize.Image
	Raw   []byte
	// Models selects the classifier models of this run; empty means all available.
	Models []string
}

// Analyzer is the interface that all evidence modules must implement
type Analyzer interface {
	// Module returns the module this analyzer reports as
	Module() models.Module

	// Description returns a short description of what the analyzer looks for
	Description() string

	// Analyze inspects the input. The only error it returns is a context error.
	Analyze(ctx context.Context, in *Input) (models.ModuleResult, error)
}

// BaseAnalyzer provides common functionality for analyzers
type BaseAnalyzer struct {
	module      models.Module
	description string
}

// NewBaseAnalyzer creates a new BaseAnalyzer
func NewBaseAnalyzer(module models.Module, description string) BaseAnalyzer {
	return BaseAnalyzer{
		module:      module,
		description: description,
	}
}

// Module returns the analyzer module
func (b *BaseAnalyzer) Module() models.Module {
	return b.module
}

// Description returns the analyzer description
func (b *BaseAnalyzer) Description() string {
	return b.description
}

// NewResult returns an empty result stamped with the analyzer module
func (b *BaseAnalyzer) NewResult() models.ModuleResult {
	return models.NewModuleResult(b.module)
}
