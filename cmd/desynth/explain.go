package main

import (
	"github.com/spf13/cobra"

	"DeSynth/pkg/models"
	"DeSynth/pkg/verdict"
)

var explainCmd = &cobra.Command{
	Use:   "explain [module:flag ...]",
	Short: "Describe detection flags",
	Long:  "Without arguments every flag of every module is listed.",
	Example: `  desynth explain
  desynth explain metadata:software_generator_tag ml:model_disagreement`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd.OutOrStdout())

		if len(args) == 0 {
			current := models.Module("")
			for _, e := range verdict.Catalog() {
				m, _, _ := models.ParseNamespaced(e.Tag)
				if m != current {
					p.Printf("\n%s\n", m)
					current = m
				}
				p.Printf("  %-45s %-7s %s\n", e.Tag, e.Severity, e.Title)
			}
			return nil
		}

		for _, tag := range args {
			e, err := verdict.Describe(tag)
			if err != nil {
				return err
			}
			describe(p, e)
		}
		return nil
	},
}

func describe(p *printer, e verdict.Explanation) {
	switch e.Severity {
	case verdict.SeverityHigh:
		p.Alert("%s: %s", e.Tag, e.Title)
	case verdict.SeverityMedium:
		p.Warning("%s: %s", e.Tag, e.Title)
	default:
		p.Info("%s: %s", e.Tag, e.Title)
	}
	p.Printf("    %s\n", e.Description)
}
