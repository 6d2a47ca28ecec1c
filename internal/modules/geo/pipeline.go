package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/garyellow/geo-linebot-go/internal/grouping"
	"github.com/garyellow/geo-linebot-go/internal/region"
	"github.com/garyellow/geo-linebot-go/internal/reply"
)

const tooManyRegionsText = "⚠️ That's %d different GEOs in one message. Please send at most %d at a time."

// Recorder receives pipeline metrics. *metrics.Metrics implements it.
type Recorder interface {
	grouping.LookupRecorder
	RecordToken(outcome string)
	RecordResolveScore(score float64)
	RecordGrouping(regions int)
	RecordRejected(reason string)
}

// PipelineConfig wires a Pipeline.
type PipelineConfig struct {
	Resolver      *region.Resolver
	Directory     grouping.Directory
	Composer      *reply.Composer
	Recorder      Recorder // optional
	MaxRegions    int      // <= 0 disables the limit
	LookupWorkers int
	LookupTimeout time.Duration
}

// Pipeline resolves free text and renders the contact sheet.
type Pipeline struct {
	cfg PipelineConfig
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Outcome is the result of running the pipeline once.
type Outcome struct {
	Text     string
	Result   region.Result
	Rejected bool // too many distinct regions; nothing was looked up
}

// Resolved reports whether at least one word resolved.
func (o Outcome) Resolved() bool {
	return len(o.Result.Resolved) > 0 && !o.Rejected
}

// Run resolves text, looks up every resolved region and composes the reply.
// username is asked for only when the footer needs it.
func (p *Pipeline) Run(ctx context.Context, text string, username func(context.Context) string) Outcome {
	res := p.cfg.Resolver.ResolveAll(region.Tokenize(text))
	p.recordTokens(res)

	regions := grouping.Distinct(res.Codes())
	if limit := p.cfg.MaxRegions; limit > 0 && len(regions) > limit {
		if p.cfg.Recorder != nil {
			p.cfg.Recorder.RecordRejected("too_many_regions")
		}
		return Outcome{
			Text:     fmt.Sprintf(tooManyRegionsText, len(regions), limit),
			Result:   res,
			Rejected: true,
		}
	}

	sets := grouping.Collect(ctx, regions, p.cfg.Directory, grouping.Options{
		Concurrency: p.cfg.LookupWorkers,
		Timeout:     p.cfg.LookupTimeout,
		Recorder:    p.lookupRecorder(),
	})
	entries := grouping.Group(regions, sets.Contacts)
	if p.cfg.Recorder != nil && len(regions) > 0 {
		p.cfg.Recorder.RecordGrouping(len(regions))
	}

	in := reply.Input{
		Entries:    entries,
		Empty:      sets.Empty(regions),
		Failed:     sets.Failed,
		Unresolved: res.Unresolved,
		Resolved:   len(res.Resolved) > 0,
	}
	if in.Resolved && username != nil {
		in.Username = username(ctx)
	}

	return Outcome{
		Text:   p.cfg.Composer.Compose(in),
		Result: res,
	}
}

func (p *Pipeline) lookupRecorder() grouping.LookupRecorder {
	if p.cfg.Recorder == nil {
		return nil
	}
	return p.cfg.Recorder
}

func (p *Pipeline) recordTokens(res region.Result) {
	r := p.cfg.Recorder
	if r == nil {
		return
	}
	for _, m := range res.Resolved {
		r.RecordToken("resolved")
		r.RecordResolveScore(m.Score)
	}
	for range res.Unresolved {
		r.RecordToken("unresolved")
	}
	for range res.Skipped {
		r.RecordToken("skipped")
	}
}
