// Package metadata scores the EXIF block of an image for generator fingerprints and
// for camera metadata that is missing, inconsistent or forged.
package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"DeSynth/pkg/analyzer"
	"DeSynth/pkg/analyzer/stats"
	"DeSynth/pkg/models"
)

const exifTimeLayout = "2006:01:02 15:04:05"

var captureDetailTags = []exif.FieldName{
	exif.FNumber,
	exif.ExposureTime,
	exif.ISOSpeedRatings,
	exif.FocalLength,
	exif.ExposureProgram,
	exif.WhiteBalance,
}

// Analyzer is the metadata forensics module
type Analyzer struct {
	analyzer.BaseAnalyzer
	cfg Config
}

// New creates a metadata analyzer
func New(cfg Config) *Analyzer {
	return &Analyzer{
		BaseAnalyzer: analyzer.NewBaseAnalyzer(models.ModuleMetadata,
			"EXIF generator tags, camera plausibility and timestamp sanity"),
		cfg: cfg,
	}
}

// Analyze scores the EXIF block isolated by the standardizer
func (a *Analyzer) Analyze(ctx context.Context, in *analyzer.Input) (models.ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ModuleResult{}, err
	}
	md := in.Image.Metadata
	return Inspect(md.EXIF, len(md.ICC) > 0, a.cfg), nil
}

// exifTags are the fields the scoring looks at
type exifTags struct {
	make           string
	model          string
	software       string
	timestamp      string
	captureDetails int
}

// Inspect scores a raw EXIF block. A nil block means the image carried none.
func Inspect(block []byte, iccPresent bool, cfg Config) models.ModuleResult {
	result := models.NewModuleResult(models.ModuleMetadata)
	score := cfg.Baseline
	result.Details["icc_present"] = boolScore(iccPresent)
	result.Details["exif_present"] = boolScore(len(block) > 0)

	if len(block) == 0 {
		score += cfg.MissingPenalty
		result.AddFlag(models.FlagExifMissing)
		result.Score = stats.Clamp01(score)
		return result
	}

	tags, err := readTags(block)
	if err != nil {
		score += cfg.ParseErrorPenalty
		result.AddFlag(models.FlagExifParseError)
	}
	if tags != nil {
		score += scoreTags(tags, cfg, &result)
		result.Details["capture_detail_tags"] = float64(tags.captureDetails)
	}

	result.Score = stats.Clamp01(score)
	return result
}

func scoreTags(tags *exifTags, cfg Config, result *models.ModuleResult) float64 {
	score := 0.0
	software := strings.ToLower(tags.software)
	cameraMake := strings.ToLower(tags.make)
	model := strings.ToLower(tags.model)

	if containsAny(software, cfg.Generators) {
		score += cfg.SoftwareGeneratorPenalty
		result.AddFlag(models.FlagSoftwareGeneratorTag)
	}
	if containsAny(cameraMake, cfg.Generators) || containsAny(model, cfg.Generators) {
		score += cfg.GeneratorMakeModelPenalty
		result.AddFlag(models.FlagGeneratorInMakeModel)
	}

	knownMake := cameraMake != "" && containsAny(cameraMake, cfg.CameraMakes)
	if cameraMake != "" && !knownMake {
		score += cfg.UnknownMakePenalty
		result.AddFlag(models.FlagUnknownCameraMake)
	}
	if cameraMake == "" && model == "" {
		score += cfg.MakeModelMissingPenalty
		result.AddFlag(models.FlagCameraMakeModelMissing)
	}

	// A real camera writes exposure details next to its make
	if knownMake {
		switch {
		case tags.captureDetails < cfg.SpoofedBelow:
			score += cfg.SpoofedPenalty
			result.AddFlag(models.FlagSpoofedMetadata)
		case tags.captureDetails < cfg.IncompleteBelow:
			score += cfg.IncompletePenalty
			result.AddFlag(models.FlagIncompleteCameraMetadata)
		}
	}

	if tags.timestamp != "" {
		taken, err := time.ParseInLocation(exifTimeLayout, tags.timestamp, time.UTC)
		if err != nil {
			score += cfg.UnparsablePenalty
			result.AddFlag(models.FlagTimestampUnparsable)
			return score
		}
		now := cfg.now()
		delta := now.Sub(taken)
		if delta < 0 {
			delta = -delta
		}
		if delta > cfg.MaxAge {
			score += cfg.OutOfRangePenalty
			result.AddFlag(models.FlagTimestampOutOfRange)
		}
		if taken.After(now.Add(cfg.FutureTolerance)) {
			score += cfg.FuturePenalty
			result.AddFlag(models.FlagTimestampFuture)
		}
	}
	return score
}

// readTags decodes the block with goexif. A decoder that gets partway returns both
// tags and an error.
func readTags(block []byte) (tags *exifTags, err error) {
	defer func() {
		if r := recover(); r != nil {
			tags, err = nil, fmt.Errorf("exif decoder panic: %v", r)
		}
	}()

	// JPEG and some WebP writers keep the APP1 identifier in front of the TIFF body
	payload := bytes.TrimPrefix(block, []byte("Exif\x00\x00"))
	x, err := exif.Decode(bytes.NewReader(payload))
	if x == nil {
		if err == nil {
			err = errors.New("exif: nothing decoded")
		}
		return nil, err
	}

	tags = &exifTags{
		make:     stringTag(x, exif.Make),
		model:    stringTag(x, exif.Model),
		software: stringTag(x, exif.Software),
	}
	tags.timestamp = stringTag(x, exif.DateTimeOriginal)
	if tags.timestamp == "" {
		tags.timestamp = stringTag(x, exif.DateTime)
	}
	for _, name := range captureDetailTags {
		if _, tagErr := x.Get(name); tagErr == nil {
			tags.captureDetails++
		}
	}
	return tags, err
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func containsAny(text string, tokens []string) bool {
	if text == "" {
		return false
	}
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
