package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DanielPopoola/ocrbot/internal/application/services"
	"github.com/DanielPopoola/ocrbot/internal/config"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/ocr"
	"github.com/DanielPopoola/ocrbot/internal/interfaces/rest"
)

func getExtractCommand() *cobra.Command {
	var (
		lang   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "extract <image>",
		Short:   "Run OCR on a local image and print the text",
		Example: "ocrbot extract receipt.png --lang deu+eng",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := cfg.Logger.NewLogger()
			if err != nil {
				return err
			}

			if lang == "" {
				lang = cfg.OCR.Language
			}
			normalized, ok := services.NormalizeLanguage(lang)
			if !ok {
				return fmt.Errorf("unsupported language code %q", lang)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			engine, err := ocr.NewEngine(cfg.OCR, logger)
			if err != nil {
				return err
			}

			result, err := engine.Extract(cmd.Context(), data, normalized)
			if err != nil {
				if !asJSON {
					return err
				}
				result = domain.NewFailedResult(domain.MessageID(args[0]), err, 0)
				result.Engine = engine.Name()
				result.Language = normalized
			} else {
				result.Success = true
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rest.ToOcrResult(result))
			}
			_, err = fmt.Fprintln(out, result.Text)
			return err
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Tesseract language code, defaults to OCRBOT_OCR__LANGUAGE")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return cmd
}
