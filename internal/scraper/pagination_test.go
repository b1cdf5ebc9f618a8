package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginatorEndOfContent(t *testing.T) {
	for _, limit := range []int{1, 20, 10000} {
		p := NewPaginator(3, 200)
		p.Collected(CollectorState{Total: 0})

		calls := 0
		for {
			if _, stop := p.Stop(); stop {
				break
			}
			calls++
			p.Scrolled(ScrollOutcome{Grew: false})
		}

		reason, _ := p.Stop()
		assert.Equal(t, 3, calls, "limit %d", limit)
		assert.Equal(t, StopEndOfContent, reason)
	}
}

func TestPaginatorGrowthResetsStall(t *testing.T) {
	p := NewPaginator(3, 200)

	p.Scrolled(ScrollOutcome{})
	p.Scrolled(ScrollOutcome{})
	p.Scrolled(ScrollOutcome{Grew: true})
	p.Scrolled(ScrollOutcome{})
	p.Scrolled(ScrollOutcome{})

	_, stop := p.Stop()
	assert.False(t, stop)

	p.Scrolled(ScrollOutcome{})
	reason, stop := p.Stop()
	assert.True(t, stop)
	assert.Equal(t, StopEndOfContent, reason)
	assert.Equal(t, 6, p.Scrolls())
}

func TestPaginatorIterationCeiling(t *testing.T) {
	p := NewPaginator(3, 5)
	calls := 0
	for {
		if _, stop := p.Stop(); stop {
			break
		}
		calls++
		p.Scrolled(ScrollOutcome{Grew: true})
	}

	reason, _ := p.Stop()
	assert.Equal(t, 5, calls)
	assert.Equal(t, StopIterationCeiling, reason)
}

func TestPaginatorCollectorReasonsWin(t *testing.T) {
	p := NewPaginator(3, 200)
	p.Scrolled(ScrollOutcome{})
	p.Scrolled(ScrollOutcome{})
	p.Scrolled(ScrollOutcome{})

	p.Collected(CollectorState{Done: true, Reason: StopCutoffReached})
	reason, stop := p.Stop()
	assert.True(t, stop)
	assert.Equal(t, StopCutoffReached, reason)

	p.Collected(CollectorState{Done: true, Reason: StopTargetReached})
	reason, _ = p.Stop()
	assert.Equal(t, StopTargetReached, reason)
}
