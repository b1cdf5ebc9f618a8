package scraper

// StopReason names why pagination of an account ended
type StopReason string

const (
	StopTargetReached    StopReason = "target-reached"
	StopCutoffReached    StopReason = "cutoff-reached"
	StopEndOfContent     StopReason = "end-of-content"
	StopIterationCeiling StopReason = "iteration-ceiling"
)

// Paginator is the scroll state machine for one account. Callers feed it
// collector states and scroll outcomes and ask Stop before every scroll.
type Paginator struct {
	stallLimit int
	maxScrolls int

	scrolls   int
	stalls    int
	collector CollectorState
}

type stopPredicate struct {
	reason StopReason
	hit    func(p *Paginator) bool
}

// Evaluated in order; the first that holds names the stop
var stopPredicates = []stopPredicate{
	{StopTargetReached, func(p *Paginator) bool { return p.collector.Reason == StopTargetReached }},
	{StopCutoffReached, func(p *Paginator) bool { return p.collector.Reason == StopCutoffReached }},
	{StopEndOfContent, func(p *Paginator) bool { return p.stalls >= p.stallLimit }},
	{StopIterationCeiling, func(p *Paginator) bool { return p.scrolls >= p.maxScrolls }},
}

// NewPaginator creates a paginator that ends after stallLimit consecutive
// scrolls without growth or after maxScrolls scrolls
func NewPaginator(stallLimit, maxScrolls int) *Paginator {
	if stallLimit < 1 {
		stallLimit = 1
	}
	if maxScrolls < 1 {
		maxScrolls = 1
	}
	return &Paginator{stallLimit: stallLimit, maxScrolls: maxScrolls}
}

// Collected records the collector state after an ingest
func (p *Paginator) Collected(st CollectorState) {
	p.collector = st
}

// Scrolled records a scroll outcome
func (p *Paginator) Scrolled(out ScrollOutcome) {
	p.scrolls++
	if out.Grew {
		p.stalls = 0
	} else {
		p.stalls++
	}
}

// Stop reports whether pagination should end and why
func (p *Paginator) Stop() (StopReason, bool) {
	for _, pred := range stopPredicates {
		if pred.hit(p) {
			return pred.reason, true
		}
	}
	return "", false
}

// Scrolls returns the number of scrolls made
func (p *Paginator) Scrolls() int {
	return p.scrolls
}
