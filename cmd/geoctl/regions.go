package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/garyellow/geo-linebot-go/internal/app"
	"github.com/garyellow/geo-linebot-go/internal/config"
	"github.com/garyellow/geo-linebot-go/internal/region"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve WORD...",
		Short: "Print the region code each word resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			resolver := app.NewResolver(e.cfg, e.dict)

			out := cmd.OutOrStdout()
			for _, word := range args {
				m, ok := resolver.Resolve(word)
				if !ok {
					printf(out, "%s\tunresolved\t%.1f\n", word, m.Score)
					continue
				}
				printf(out, "%s\t%s\t%.1f\n", word, m.Code, m.Score)
			}
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a region dictionary for blank or conflicting variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("regions")
			if path == "" {
				path = os.Getenv(config.EnvRegionsFile)
			}

			var doc []byte
			if path == "" {
				doc = region.EmbeddedYAML()
				path = "embedded dictionary"
			} else {
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				doc = b
			}

			issues, err := region.Validate(bytes.NewReader(doc))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, issue := range issues {
				printf(out, "❌ %s\n", issue)
			}
			if len(issues) > 0 {
				return fmt.Errorf("%s: %d issue(s)", path, len(issues))
			}

			dict, err := region.LoadDictionary(bytes.NewReader(doc))
			if err != nil {
				return err
			}
			printf(out, "✅ %s: %d regions\n", path, dict.Len())
			return nil
		},
	}
}
