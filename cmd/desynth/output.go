package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"DeSynth/pkg/models"
	"DeSynth/pkg/verdict"
	"DeSynth/pkg/wire"
)

var (
	// Color printers
	infoColor    = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	alertColor   = color.New(color.FgRed, color.Bold).SprintFunc()
)

// printer writes the prefixed, colored status lines of the CLI
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) Info(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", infoColor("[*]"), fmt.Sprintf(format, args...))
}

func (p *printer) Success(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", successColor("[+]"), fmt.Sprintf(format, args...))
}

func (p *printer) Warning(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", warningColor("[!]"), fmt.Sprintf(format, args...))
}

func (p *printer) Error(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", errorColor("[-]"), fmt.Sprintf(format, args...))
}

func (p *printer) Alert(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", alertColor("[!!!]"), fmt.Sprintf(format, args...))
}

func (p *printer) Println(a ...interface{}) {
	fmt.Fprintln(p.w, a...)
}

func (p *printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

// fileResult is one analyzed input of a batch
type fileResult struct {
	Name   string
	Result *models.PipelineResult
	Err    error
}

// Output formats
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

// verdictLine prints the verdict with the color of its rung on the ladder
func verdictLine(p *printer, v models.VerdictResult) {
	switch v.Verdict {
	case models.VerdictAIGenerated:
		p.Alert("AI GENERATED (confidence %.2f ± %.2f)", v.Confidence, v.Uncertainty)
	case models.VerdictLikelyAI:
		p.Warning("LIKELY AI (confidence %.2f ± %.2f)", v.Confidence, v.Uncertainty)
	case models.VerdictUncertain:
		p.Info("UNCERTAIN (confidence %.2f ± %.2f)", v.Confidence, v.Uncertainty)
	default:
		label := strings.ReplaceAll(string(v.Verdict), "_", " ")
		p.Success("%s (confidence %.2f ± %.2f)", label, v.Confidence, v.Uncertainty)
	}
}

func displayResult(p *printer, name string, r *models.PipelineResult, verbose, explain bool) {
	p.Println("\n--- Analysis Results ---")
	p.Printf("File: %s\n", name)
	p.Printf("Format: %s (%dx%d)\n", r.Image.Format, r.Image.SourceWidth, r.Image.SourceHeight)
	p.Printf("SHA-256: %s\n", r.Hashes.SHA256)
	p.Printf("pHash: %s\n", r.Hashes.PHash)

	verdictLine(p, r.Verdict)

	p.Println("\nModules:")
	for _, m := range r.Modules() {
		weight := ""
		if w, ok := r.Fusion.Weights[m.Module]; ok {
			weight = fmt.Sprintf("  weight %.3f", w)
		}
		flags := ""
		if len(m.Flags) > 0 {
			names := make([]string, len(m.Flags))
			for i, f := range m.Flags {
				names[i] = string(f)
			}
			flags = "  [" + strings.Join(names, ", ") + "]"
		}
		p.Printf("  %-11s %.2f%s%s\n", m.Module, m.Score, weight, flags)

		if verbose {
			keys := make([]string, 0, len(m.Details))
			for k := range m.Details {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				p.Printf("      %s: %.4f\n", k, m.Details[k])
			}
			for _, v := range m.Votes {
				p.Printf("      vote %s: %s %.2f\n", v.Model, v.Prediction, v.Confidence)
			}
		}
	}
	if verbose {
		p.Printf("\nFusion: raw %.3f, spread %.3f, penalty %.3f, provenance %.2f\n",
			r.Fusion.RawScore, r.Fusion.Spread, r.Fusion.ContradictionPenalty, r.Fusion.ProvenanceAdjustment)
	}

	if explain {
		p.Println("\nFindings:")
		for i, e := range verdict.DescribeAll(r.Verdict.Explanations) {
			p.Printf("%d. %s (%s)\n", i+1, e.Title, e.Severity)
			if verbose {
				p.Printf("   %s\n", e.Description)
			}
		}
	} else {
		p.Printf("\nExplanations: %s\n", strings.Join(r.Verdict.Explanations, ", "))
	}

	p.Println("-------------------------")
}

// writeResult renders a result in a machine format
func writeResult(w io.Writer, r *models.PipelineResult, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case formatJSON:
		data, err = wire.MarshalIndent(r)
		if err == nil {
			data = append(data, '\n')
		}
	case formatYAML:
		data, err = wire.MarshalYAML(r)
		if err == nil {
			data = append([]byte("---\n"), data...)
		}
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func printSummary(p *printer, results []fileResult) {
	counts := make(map[models.Verdict]int)
	failed := 0
	for _, fr := range results {
		if fr.Err != nil {
			failed++
			continue
		}
		counts[fr.Result.Verdict.Verdict]++
	}

	p.Println("\n=== Analysis Summary ===")
	p.Printf("Total files analyzed: %d\n", len(results)-failed)

	likelyReal := counts[models.VerdictReal] + counts[models.VerdictLikelyReal]
	p.Printf("%s Likely real: %d\n", successColor("[+]"), likelyReal)
	if n := counts[models.VerdictUncertain]; n > 0 {
		p.Printf("%s Uncertain: %d\n", infoColor("[*]"), n)
	}
	if n := counts[models.VerdictLikelyAI]; n > 0 {
		p.Printf("%s Likely AI: %d\n", warningColor("[!]"), n)
	}
	if n := counts[models.VerdictAIGenerated]; n > 0 {
		p.Printf("%s AI generated: %d\n", alertColor("[!!!]"), n)
	}
	if failed > 0 {
		p.Printf("%s Failed: %d\n", errorColor("[-]"), failed)
	}

	var synthetic []fileResult
	for _, fr := range results {
		if fr.Err == nil && fr.Result.Verdict.Verdict.Rank() >= models.VerdictLikelyAI.Rank() {
			synthetic = append(synthetic, fr)
		}
	}
	if len(synthetic) > 0 {
		p.Println("\nFiles likely to be synthetic:")
		for _, fr := range synthetic {
			p.Printf("- %s (%s, confidence %.2f)\n", fr.Name, fr.Result.Verdict.Verdict, fr.Result.Verdict.Confidence)
		}
	}
}
