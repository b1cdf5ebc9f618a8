package scraper

import (
	"iter"

	"github.com/ibeckermayer/xscrape/internal/types"
)

// CollectorState is the running total after an ingest
type CollectorState struct {
	Added  int
	Total  int
	Done   bool
	Reason StopReason
}

// Collector accumulates one account's records across scroll passes,
// dropping repeats by post id and keeping DOM encounter order
type Collector struct {
	target  types.AccountTarget
	seen    map[string]struct{}
	records []types.PostRecord
	reason  StopReason
}

// NewCollector creates a collector for target
func NewCollector(target types.AccountTarget) *Collector {
	return &Collector{
		target: target,
		seen:   make(map[string]struct{}),
	}
}

// Ingest adds unseen records until the target count or the date cutoff is
// reached. A post older than the cutoff is not kept; since the timeline is
// newest first it also ends collection.
func (c *Collector) Ingest(records iter.Seq[types.PostRecord]) CollectorState {
	added := 0
	for rec := range records {
		if c.reason != "" {
			break
		}
		if _, ok := c.seen[rec.PostID]; ok {
			continue
		}
		c.seen[rec.PostID] = struct{}{}

		if c.target.CutoffAge > 0 && rec.Age() > c.target.CutoffAge {
			c.reason = StopCutoffReached
			break
		}

		c.records = append(c.records, rec)
		added++
		if c.target.Limit > 0 && len(c.records) >= c.target.Limit {
			c.reason = StopTargetReached
		}
	}
	return c.State(added)
}

// State reports the totals with added as the last ingest's count
func (c *Collector) State(added int) CollectorState {
	return CollectorState{
		Added:  added,
		Total:  len(c.records),
		Done:   c.reason != "",
		Reason: c.reason,
	}
}

// Records returns the collected records in encounter order
func (c *Collector) Records() []types.PostRecord {
	return c.records
}
