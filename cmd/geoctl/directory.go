package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/garyellow/geo-linebot-go/internal/app"
	"github.com/garyellow/geo-linebot-go/internal/export"
	"github.com/garyellow/geo-linebot-go/internal/storage"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup TEXT...",
		Short: "Run a GEO request against the directory and print the reply",
		Long: `Resolves the words, looks up the contact directory and prints the reply
the bot would send. Nothing is written to the request log.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return e.withStore(ctx, func(store storage.Store) error {
				pipeline := app.NewPipeline(e.cfg, e.dict, store, nil)
				out := pipeline.Run(ctx, strings.Join(args, " "), func(context.Context) string {
					return "operator"
				})
				printf(cmd.OutOrStdout(), "%s\n", out.Text)
				return nil
			})
		},
	}
}

// seedEntry is one directory entry in a seed document:
//
//	- team: Team1
//	  contacts: ["@alice"]
//	  manager_ids: [U1234]
//	  regions: [US, DE]
type seedEntry struct {
	Team       string   `yaml:"team"`
	Contacts   []string `yaml:"contacts"`
	ManagerIDs []string `yaml:"manager_ids"`
	Regions    []string `yaml:"regions"`
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Import contact directory entries from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			allowUnknown, _ := cmd.Flags().GetBool("allow-unknown")

			entries, err := readSeed(args[0])
			if err != nil {
				return err
			}
			batch, err := seedBatch(entries, e.dict.Has, allowUnknown)
			if err != nil {
				return err
			}

			return e.withStore(cmd.Context(), func(store storage.Store) error {
				if err := store.SaveContactsBatch(cmd.Context(), batch); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "✅ %d entries imported\n", len(batch))
				return nil
			})
		},
	}
	cmd.Flags().Bool("allow-unknown", false, "accept region codes missing from the dictionary")
	return cmd
}

func readSeed(path string) ([]seedEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var entries []seedEntry
	if err := yaml.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}

// seedBatch validates seed entries and converts them for SaveContactsBatch.
// Region codes are upper-cased; every problem is reported at once.
func seedBatch(entries []seedEntry, known func(string) bool, allowUnknown bool) ([]*storage.ContactEntry, error) {
	var errs []error
	batch := make([]*storage.ContactEntry, 0, len(entries))
	for i, se := range entries {
		team := strings.TrimSpace(se.Team)
		if team == "" {
			errs = append(errs, fmt.Errorf("entry %d: team is required", i+1))
			continue
		}
		if len(se.Contacts) == 0 {
			errs = append(errs, fmt.Errorf("entry %d (%s): at least one contact is required", i+1, team))
			continue
		}

		regions := make([]string, 0, len(se.Regions))
		for _, code := range se.Regions {
			code = strings.ToUpper(strings.TrimSpace(code))
			if !allowUnknown && !known(code) {
				errs = append(errs, fmt.Errorf("entry %d (%s): unknown region %q", i+1, team, code))
				continue
			}
			regions = append(regions, code)
		}

		batch = append(batch, &storage.ContactEntry{
			Team:       team,
			Contacts:   se.Contacts,
			ManagerIDs: se.ManagerIDs,
			Regions:    regions,
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return batch, nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export TEAM",
		Short: "Write a team's request log to a local workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			team := args[0]
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = export.FileName(team)
			}

			return e.withStore(cmd.Context(), func(store storage.Store) error {
				rows, err := store.ListRequests(cmd.Context(), team)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					return fmt.Errorf("no requests logged for team %s", team)
				}

				buf, err := export.Workbook(rows)
				if err != nil {
					return err
				}
				if dir := filepath.Dir(out); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return err
					}
				}
				if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "📊 %d requests written to %s\n", len(rows), out)
				return nil
			})
		},
	}
	cmd.Flags().StringP("out", "o", "", "output file (default: <team>_requests.xlsx)")
	return cmd
}
