package scraper

import "regexp"

// X DOM selectors
// These are isolated here because X changes their DOM frequently
// Update these when scraping breaks

// Post containers, tried in order until one matches anything
var containerSelectors = []string{
	`article[data-testid="tweet"]`,
	`article[role="article"]`,
	`div[data-testid="cellInnerDiv"] article`,
}

const (
	TimelineContainer = `[data-testid="primaryColumn"]`
	UserName          = `[data-testid="User-Name"]`
	SocialContext     = `[data-testid="socialContext"]`
	ProfileLock       = `[data-testid="UserName"] [data-testid="icon-lock"], [data-testid="icon-lock"]`
	ErrorDetail       = `[data-testid="error-detail"]`
	EmptyState        = `[data-testid="emptyState"]`

	// Account-authored or unrelated text around the timeline
	profileText = `[data-testid="UserDescription"], [data-testid="UserName"], [data-testid="UserProfileHeader_Items"], [data-testid="sidebarColumn"]`

	transitionText = `[data-testid="app-text-transition-container"]`
	quoteWrapper   = `[data-testid="quoteTweet"], div[role="link"]`
)

var (
	statusPathRE = regexp.MustCompile(`/([A-Za-z0-9_]{1,15})/status/(\d+)`)
	permalinkRE  = regexp.MustCompile(`(?:https?://(?:www\.|mobile\.)?(?:x|twitter)\.com)?/[A-Za-z0-9_]{1,15}/status/\d+`)
	isoTimeRE    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)
)

func countLabel(noun string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)([\d.,]+\s?[KMB]?)\s+` + noun)
}

// Field chains. First successful strategy wins.
var (
	permalinkChain = Chain{
		PrimarySelector{Selector: `a[href*="/status/"]:has(time)`, Attr: "href"},
		AlternateSelector{Selector: `a[href*="/status/"]`, Attr: "href"},
		HeuristicPattern{Selector: `[href]`, Attr: "href", Pattern: permalinkRE},
	}

	timestampChain = Chain{
		PrimarySelector{Selector: `time[datetime]`, Attr: "datetime"},
		AlternateSelector{Selector: `a[href*="/status/"] time`, Attr: "datetime"},
		HeuristicPattern{Selector: `[datetime]`, Attr: "datetime", Pattern: isoTimeRE},
	}

	// Text of a quoted post belongs to the quoted author
	textChain = Chain{
		PrimarySelector{Selector: `[data-testid="tweetText"]`, Outside: quoteWrapper},
		AlternateSelector{Selector: `div[lang]`, Outside: quoteWrapper},
		AlternateSelector{Selector: `div[dir="auto"]`, Outside: quoteWrapper},
	}

	displayNameChain = Chain{
		PrimarySelector{Selector: UserName + ` a span`},
		AlternateSelector{Selector: UserName + ` span`},
		AlternateSelector{Selector: `a[role="link"] span span`},
	}

	handleChain = Chain{
		PrimarySelector{Selector: UserName + ` a[href^="/"]:not([href*="/status/"])`, Attr: "href"},
		AlternateSelector{Selector: `a[tabindex="-1"][href^="/"]:not([href*="/status/"])`, Attr: "href"},
	}

	replyChain = Chain{
		PrimarySelector{Selector: `[data-testid="reply"] ` + transitionText},
		AlternateSelector{Selector: `[data-testid="reply"] span`},
		HeuristicPattern{Selector: `[data-testid="reply"], [aria-label]`, Attr: "aria-label", Pattern: countLabel(`repl`)},
	}

	repostChain = Chain{
		PrimarySelector{Selector: `[data-testid="retweet"] ` + transitionText + `, [data-testid="unretweet"] ` + transitionText},
		AlternateSelector{Selector: `[data-testid="retweet"] span, [data-testid="unretweet"] span`},
		HeuristicPattern{Selector: `[data-testid="retweet"], [data-testid="unretweet"], [aria-label]`, Attr: "aria-label", Pattern: countLabel(`(?:repost|retweet)`)},
	}

	likeChain = Chain{
		PrimarySelector{Selector: `[data-testid="like"] ` + transitionText + `, [data-testid="unlike"] ` + transitionText},
		AlternateSelector{Selector: `[data-testid="like"] span, [data-testid="unlike"] span`},
		HeuristicPattern{Selector: `[data-testid="like"], [data-testid="unlike"], [aria-label]`, Attr: "aria-label", Pattern: countLabel(`like`)},
	}

	viewChain = Chain{
		PrimarySelector{Selector: `a[href*="/analytics"] ` + transitionText},
		AlternateSelector{Selector: `a[href*="/analytics"] span`},
		HeuristicPattern{Selector: `a[href*="/analytics"], [aria-label]`, Attr: "aria-label", Pattern: countLabel(`view`)},
	}

	quoteChain = Chain{
		PrimarySelector{Selector: `[data-testid="quoteTweet"]`},
		AlternateSelector{Selector: `div[role="link"]:has(` + UserName + `)`},
	}
)

// Media selectors; every match across all of them is collected
var (
	imageSelectors = []string{
		`[data-testid="tweetPhoto"] img`,
		`img[src*="pbs.twimg.com/media"]`,
	}
	videoSelectors = []string{
		`[data-testid="videoComponent"] video`,
		`video[src]`,
		`video source`,
		`video[poster]`,
	}
)
