package scraper

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/xscrape/internal/browser"
	"github.com/ibeckermayer/xscrape/internal/types"
)

// Snapshot captures the rendered DOM of the page
func Snapshot(ctx context.Context, page browser.Page) (*goquery.Document, error) {
	html, err := page.OuterHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture DOM: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOM: %w", err)
	}
	return doc, nil
}

// Containers returns the visible post containers using the first container
// selector that matches. Posts nested inside another post are excluded.
func Containers(doc *goquery.Document) *goquery.Selection {
	for _, sel := range containerSelectors {
		found := doc.Find(sel).Not("article article")
		if found.Length() > 0 {
			return found
		}
	}
	return doc.Find(containerSelectors[0])
}

// Extractor turns DOM snapshots into post records
type Extractor struct {
	log zerolog.Logger
}

// NewExtractor creates an extractor
func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{log: log.With().Str("component", "extractor").Logger()}
}

// Records yields a record for every visible post container that has the
// required fields. The sequence can be ranged over repeatedly; each pass
// re-reads the whole snapshot.
func (e *Extractor) Records(doc *goquery.Document, account string, scrapedAt time.Time) iter.Seq[types.PostRecord] {
	return func(yield func(types.PostRecord) bool) {
		containers := Containers(doc)
		for i := range containers.Length() {
			rec, ok := e.extract(containers.Eq(i), account, scrapedAt)
			if !ok {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// extract parses one container. A malformed container never escapes as a
// panic; it is logged as an extraction gap and skipped.
func (e *Extractor) extract(post *goquery.Selection, account string, scrapedAt time.Time) (rec types.PostRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Debug().Str("account", account).Interface("panic", r).Msg("extraction gap")
			rec, ok = types.PostRecord{}, false
		}
	}()

	href, strategy, found := permalinkChain.Resolve(post)
	if !found {
		e.log.Debug().Str("account", account).Str("field", "post_url").Msg("extraction gap")
		return rec, false
	}
	author, postID, ok := parsePermalink(href)
	if !ok {
		e.log.Debug().Str("account", account).Str("field", "post_id").Str("href", href).Msg("extraction gap")
		return rec, false
	}
	if strategy != "primary" {
		e.log.Debug().Str("post_id", postID).Str("field", "post_url").Str("strategy", strategy).Msg("fallback strategy used")
	}

	if author == "" {
		if h, _, ok := handleChain.Resolve(post); ok {
			author = strings.Trim(h, "/")
		} else {
			author = account
		}
	}

	rec = types.PostRecord{
		PostID:        postID,
		PostURL:       fmt.Sprintf("https://x.com/%s/status/%s", author, postID),
		AccountHandle: author,
		ScrapedAt:     scrapedAt,
	}

	rec.AccountDisplayName, _, _ = displayNameChain.Resolve(post)
	rec.TextContent, _, _ = textChain.Resolve(post)
	if ts, _, ok := timestampChain.Resolve(post); ok {
		rec.Timestamp = parseTimestamp(ts)
	}

	rec.ReplyCount = e.count(post, replyChain, "reply_count", postID)
	rec.RepostCount = e.count(post, repostChain, "repost_count", postID)
	rec.LikeCount = e.count(post, likeChain, "like_count", postID)
	rec.ViewCount = e.count(post, viewChain, "view_count", postID)

	rec.IsRepost = isRepost(post, author, account)
	rec.IsQuote = isQuote(post)
	rec.MediaURLs = mediaURLs(post)

	return rec, true
}

func (e *Extractor) count(post *goquery.Selection, chain Chain, field, postID string) int {
	raw, strategy, ok := chain.Resolve(post)
	if !ok {
		return 0
	}
	n, err := parseCount(raw)
	if err != nil {
		e.log.Warn().Err(err).Str("post_id", postID).Str("field", field).Str("strategy", strategy).Msg("unparseable count")
		return 0
	}
	return n
}

// parsePermalink returns the author handle and post id of a status link
func parsePermalink(href string) (string, string, bool) {
	m := statusPathRE.FindStringSubmatch(href)
	if m == nil {
		return "", "", false
	}
	author := m[1]
	// /i/web/status/<id> carries no author
	if author == "i" || author == "web" {
		author = ""
	}
	return author, m[2], true
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

// isRepost is structural: a post on the timeline written by another author,
// or one under a social-context header linking to the reposter
func isRepost(post *goquery.Selection, author, account string) bool {
	if account != "" && !strings.EqualFold(author, account) {
		return true
	}
	return post.Find(`a `+SocialContext+`, a`+SocialContext).Length() > 0
}

func isQuote(post *goquery.Selection) bool {
	if _, _, ok := quoteChain.Resolve(post); ok {
		return true
	}
	// A quoted post renders its own timestamp
	return post.Find(`time`).Length() > 1
}

func mediaURLs(post *goquery.Selection) []string {
	urls := []string{}
	seen := make(map[string]bool)
	add := func(raw string) {
		u := normalizeMediaURL(raw)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}

	for _, sel := range imageSelectors {
		post.Find(sel).Each(func(_ int, img *goquery.Selection) {
			src, _ := img.Attr("src")
			add(src)
		})
	}
	for _, sel := range videoSelectors {
		post.Find(sel).Each(func(_ int, v *goquery.Selection) {
			src, _ := v.Attr("src")
			if normalizeMediaURL(src) == "" {
				src, _ = v.Attr("poster")
			}
			add(src)
		})
	}
	return urls
}

// normalizeMediaURL requests the large rendition of pbs.twimg.com images and
// drops URLs that cannot be fetched outside the page
func normalizeMediaURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	if u.Host == "pbs.twimg.com" {
		u.RawQuery = "format=jpg&name=large"
	}
	return u.String()
}
