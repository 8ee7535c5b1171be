package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "ocrbot",
		Short:        "Telegram bot that replies to images with the text found in them",
		SilenceUsage: true,
	}

	serve := getServeCommand()
	root.RunE = serve.RunE
	root.AddCommand(serve, getExtractCommand(), getVersionCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
