package scraper

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPage(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		status int
		want   PageState
	}{
		{
			name: "timeline loaded",
			html: `<div data-testid="primaryColumn">` + primaryPost + `</div>`,
			want: PageLoaded,
		},
		{
			name: "account does not exist",
			html: `<div data-testid="emptyState"><span>This account doesn’t exist</span><span>Try searching for another.</span></div>`,
			want: PageNotFound,
		},
		{
			name: "account does not exist ascii apostrophe",
			html: `<div><span>This account doesn't exist</span></div>`,
			want: PageNotFound,
		},
		{
			name: "suspended",
			html: `<div data-testid="emptyState"><span>Account suspended</span></div>`,
			want: PageSuspended,
		},
		{
			name: "protected text",
			html: `<div data-testid="emptyState"><span>These posts are protected</span></div>`,
			want: PageProtected,
		},
		{
			name: "protected lock icon",
			html: `<div data-testid="UserName"><svg data-testid="icon-lock"></svg></div>`,
			want: PageProtected,
		},
		{
			name: "rate limit banner",
			html: `<div><span>Something went wrong. Try reloading.</span><button>Retry</button></div>`,
			want: PageRateLimited,
		},
		{
			name: "error detail",
			html: `<div data-testid="error-detail"></div>`,
			want: PageRateLimited,
		},
		{
			name:   "http 429",
			html:   `<div data-testid="primaryColumn">` + primaryPost + `</div>`,
			status: http.StatusTooManyRequests,
			want:   PageRateLimited,
		},
		{
			name: "empty timeline",
			html: `<div data-testid="emptyState"><span>@quiet hasn’t posted</span></div>`,
			want: PageEmpty,
		},
		{
			name: "marker inside a post is ignored",
			html: `<article data-testid="tweet"><a href="/golang/status/1"><time datetime="2026-05-09T08:30:00Z"></time></a>
				<div data-testid="tweetText">Account suspended for no reason, rate limit exceeded</div></article>`,
			want: PageLoaded,
		},
		{
			name: "still rendering",
			html: `<div id="react-root"><div role="progressbar"></div></div>`,
			want: PageLoading,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPage(parseDoc(t, tt.html), tt.status))
		})
	}
}

func TestClassifyPageIgnoresProfileText(t *testing.T) {
	bios := []string{
		"my main account suspended in 2023",
		"Too many requests? DM me",
		"My posts are protected elsewhere",
		"This account doesn't exist anymore, follow @new",
		"hasn't posted a bad take yet",
	}
	for _, bio := range bios {
		t.Run(bio, func(t *testing.T) {
			html := `<div data-testid="primaryColumn">
  <div data-testid="UserName"><span>Gopher</span></div>
  <div data-testid="UserDescription"><span>` + bio + `</span></div>
  ` + primaryPost + `
</div>
<div data-testid="sidebarColumn"><span>` + bio + `</span></div>`
			assert.Equal(t, PageLoaded, ClassifyPage(parseDoc(t, html), 0))
		})
	}
}

func TestClassifyPageBannerBelowPosts(t *testing.T) {
	html := `<div data-testid="primaryColumn">
  <div data-testid="UserDescription"><span>Account suspended? Never.</span></div>
  ` + primaryPost + `
  <div><span>Something went wrong. Try reloading.</span><button>Retry</button></div>
</div>`
	assert.Equal(t, PageRateLimited, ClassifyPage(parseDoc(t, html), 0))
}

func TestPageStateTerminal(t *testing.T) {
	assert.True(t, PageNotFound.Terminal())
	assert.True(t, PageSuspended.Terminal())
	assert.True(t, PageProtected.Terminal())
	assert.False(t, PageRateLimited.Terminal())
	assert.False(t, PageLoaded.Terminal())
	assert.Equal(t, "not-found", PageNotFound.String())
}
