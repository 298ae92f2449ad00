package main

import (
	"github.com/spf13/cobra"

	"DeSynth/pkg/filehandler"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported image formats",
	Run: func(cmd *cobra.Command, args []string) {
		p := newPrinter(cmd.OutOrStdout())
		p.Println("Supported file formats:")
		for _, ext := range filehandler.Extensions() {
			p.Printf("- %s: %s\n", ext, filehandler.SupportedImageFormats[ext])
		}
	},
}
