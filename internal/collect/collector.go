// Package collect is the concurrency core of EdgeWatch: it fans one fetch
// out per enabled source, joins on every unit reporting back, and merges the
// per-source fragments into a single snapshot for the cycle.
package collect

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/HerbHall/edgewatch/internal/fetch"
	"github.com/HerbHall/edgewatch/internal/parse"
	"github.com/HerbHall/edgewatch/internal/source"
)

// Snapshot is the merged metric set of one collection cycle. A nil Snapshot
// means no source produced data this cycle and the caller should skip
// emission; it is distinct from a snapshot of legitimate zero values.
type Snapshot map[string]int64

// Collector runs collection cycles against a fixed Fetcher.
type Collector struct {
	fetcher fetch.Fetcher
	logger  *zap.Logger
}

// New returns a Collector that fetches payloads through f.
func New(f fetch.Fetcher, logger *zap.Logger) *Collector {
	return &Collector{fetcher: f, logger: logger}
}

// task pairs a descriptor with its resolved parser. Parsers are resolved
// before fan-out so a broken descriptor set fails the cycle up front instead
// of inside a goroutine.
type task struct {
	desc   source.Descriptor
	parser parse.Parser
}

// Collect runs one cycle over the enabled subset of sources and returns the
// merged snapshot, or nil when no source contributed anything.
//
// Every unit runs fetch+parse independently and always delivers exactly one
// fragment (possibly empty) to the results channel, so the join below
// receives exactly len(tasks) messages and cannot hang on a failed source.
// Expected runtime failures degrade the owning source to an empty fragment;
// only contract violations (unknown kind, colliding keys) return an error.
func (c *Collector) Collect(ctx context.Context, sources []source.Descriptor) (Snapshot, error) {
	var tasks []task
	for _, d := range sources {
		if !d.Enabled {
			continue
		}
		p, err := parse.ForSource(d)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task{desc: d, parser: p})
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	// Buffered to the task count: no unit ever blocks on delivery, even if
	// the join bails out early on a merge error.
	results := make(chan parse.Fragment, len(tasks))
	for _, t := range tasks {
		go c.run(ctx, t, results)
	}

	snap := make(Snapshot)
	for range tasks {
		frag := <-results
		for name, value := range frag {
			if _, exists := snap[name]; exists {
				return nil, fmt.Errorf("collect: metric key %q produced by more than one source", name)
			}
			snap[name] = value
		}
	}

	if len(snap) == 0 {
		return nil, nil
	}
	return snap, nil
}

// run executes one unit: fetch, parse, deliver. Failures are logged and
// collapsed to an empty fragment before delivery, which keeps the join
// count exact and the merge free of partial data.
func (c *Collector) run(ctx context.Context, t task, results chan<- parse.Fragment) {
	frag, err := c.collectOne(ctx, t)
	if err != nil {
		c.logger.Warn("source degraded to empty fragment",
			zap.String("source", t.desc.Name),
			zap.String("url", t.desc.URL),
			zap.Error(err),
		)
		frag = parse.Fragment{}
	}
	results <- frag
}

func (c *Collector) collectOne(ctx context.Context, t task) (parse.Fragment, error) {
	raw, err := c.fetcher.Fetch(ctx, t.desc.URL)
	if err != nil {
		return nil, err
	}
	return t.parser.Parse(raw)
}
