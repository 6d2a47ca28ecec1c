// Package requestlog records GEO requests per team without delaying replies.
package requestlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyellow/geo-linebot-go/internal/grouping"
	"github.com/garyellow/geo-linebot-go/internal/storage"
)

// Mode selects how a request is split into rows.
type Mode string

const (
	// ModePerRegion writes one row per (team, region).
	ModePerRegion Mode = "per_region"
	// ModePerTeam writes one row per team with its regions space-joined.
	ModePerTeam Mode = "per_team"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePerRegion, ModePerTeam:
		return m, nil
	case "":
		return ModePerTeam, nil
	default:
		return "", fmt.Errorf("unknown request log mode %q (want %s or %s)", s, ModePerRegion, ModePerTeam)
	}
}

// Request is one resolved GEO request.
type Request struct {
	UserID   string
	Username string
	Codes    []string // resolved codes in input order, duplicates allowed
	At       time.Time
}

// BuildRows turns a request into log rows using the current directory.
// Teams appear in first-seen order and are lower-cased. When aggregate is
// set, one extra row under that team carries every requested region.
func BuildRows(ctx context.Context, dir grouping.Directory, req Request, mode Mode, aggregate string) ([]storage.Request, error) {
	codes := grouping.Distinct(req.Codes)
	if len(codes) == 0 {
		return nil, nil
	}

	row := func(team, geo string) storage.Request {
		return storage.Request{
			Team:        strings.ToLower(team),
			UserID:      req.UserID,
			Username:    req.Username,
			Geo:         geo,
			RequestDate: req.At,
		}
	}

	var (
		rows      []storage.Request
		teamOrder []string
		teamGeos  = make(map[string][]string)
	)

	for _, code := range codes {
		entries, err := dir.LookupByRegion(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("lookup teams for %s: %w", code, err)
		}

		seen := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			team := strings.ToLower(e.Team)
			if _, dup := seen[team]; dup {
				continue
			}
			seen[team] = struct{}{}

			if mode == ModePerRegion {
				rows = append(rows, row(team, code))
				continue
			}
			if _, known := teamGeos[team]; !known {
				teamOrder = append(teamOrder, team)
			}
			teamGeos[team] = append(teamGeos[team], code)
		}
	}

	for _, team := range teamOrder {
		rows = append(rows, row(team, strings.Join(teamGeos[team], " ")))
	}

	if aggregate != "" {
		rows = append(rows, row(aggregate, strings.Join(codes, " ")))
	}
	return rows, nil
}
