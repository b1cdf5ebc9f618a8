// Package report renders the end-of-run summary as HTML and plain text.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ibeckermayer/xscrape/internal/pipeline"
	"github.com/ibeckermayer/xscrape/internal/types"
)

// FileName is the report written into the output directory
const FileName = "report.html"

// Builder collects records as a pipeline sink and renders the run report
type Builder struct {
	maxPosts int
	template *template.Template

	mu    sync.Mutex
	posts map[string][]types.PostRecord
}

var _ pipeline.Sink = (*Builder)(nil)

// New creates a report builder showing at most maxPosts posts per account
func New(maxPosts int) (*Builder, error) {
	tmpl, err := template.New("report").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{
		maxPosts: maxPosts,
		template: tmpl,
		posts:    make(map[string][]types.PostRecord),
	}, nil
}

// Write keeps an account's records for the report
func (b *Builder) Write(account string, records []types.PostRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts[account] = slices.Clone(records)
	return nil
}

// Report is a rendered run report
type Report struct {
	Title     string
	HTMLBody  string
	PlainBody string
	CreatedAt time.Time
}

// ReportData is the template data structure
type ReportData struct {
	Title    string
	Date     string
	RunID    string
	Accounts []AccountData
	Stats    StatsData
}

// AccountData is one account section of the report
type AccountData struct {
	Handle    string
	Label     string
	Completed bool
	Records   int
	Scrolls   int
	StopCond  string
	Duration  string
	Err       string
	Posts     []PostData
}

// PostData represents a post in the report template
type PostData struct {
	AuthorHandle string
	AuthorName   string
	Content      string
	Time         string
	Likes        int
	Reposts      int
	Replies      int
	Views        int
	Media        int
	Repost       bool
	Quote        bool
	URL          string
}

// StatsData contains run statistics
type StatsData struct {
	Accounts    int
	Completed   int
	Skipped     int
	RateLimited int
	Records     int
	Duration    string
}

// Build renders the report for a finished run
func (b *Builder) Build(run *pipeline.RunReport) (*Report, error) {
	if run == nil || len(run.Results) == 0 {
		return nil, fmt.Errorf("no accounts to report")
	}

	data := ReportData{
		Title: "X Scrape Report",
		Date:  run.StartedAt.Format("Monday, January 2 2006 15:04 MST"),
		RunID: run.ID,
		Stats: StatsData{
			Accounts:    len(run.Results),
			Completed:   run.Count(types.StatusCompleted),
			Skipped:     run.Count(types.StatusSkipped),
			RateLimited: run.Count(types.StatusRateLimited),
			Records:     run.Records(),
			Duration:    run.Duration().Round(time.Second).String(),
		},
	}

	b.mu.Lock()
	for _, res := range run.Results {
		data.Accounts = append(data.Accounts, AccountData{
			Handle:    res.Handle,
			Label:     res.Label(),
			Completed: res.Status == types.StatusCompleted,
			Records:   res.Records,
			Scrolls:   res.Scrolls,
			StopCond:  res.StopCond,
			Duration:  res.Duration.Round(time.Millisecond).String(),
			Err:       res.Err,
			Posts:     b.topPosts(b.posts[res.Handle]),
		})
	}
	b.mu.Unlock()

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Report{
		Title:     fmt.Sprintf("%s - %s", data.Title, run.StartedAt.Format("Jan 2 15:04")),
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		CreatedAt: run.FinishedAt,
	}, nil
}

// WriteFile renders the report into dir/report.html and returns it
func (b *Builder) WriteFile(dir string, run *pipeline.RunReport) (*Report, string, error) {
	r, err := b.Build(run)
	if err != nil {
		return nil, "", err
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(r.HTMLBody), 0644); err != nil {
		return nil, "", fmt.Errorf("failed to write report: %w", err)
	}
	return r, path, nil
}

// topPosts picks the most liked posts, ties kept in timeline order
func (b *Builder) topPosts(records []types.PostRecord) []PostData {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, c types.PostRecord) int {
		return c.LikeCount - a.LikeCount
	})
	if b.maxPosts > 0 && len(sorted) > b.maxPosts {
		sorted = sorted[:b.maxPosts]
	}

	posts := make([]PostData, len(sorted))
	for i, p := range sorted {
		posts[i] = PostData{
			AuthorHandle: p.AccountHandle,
			AuthorName:   p.AccountDisplayName,
			Content:      truncate(p.TextContent, 280),
			Likes:        p.LikeCount,
			Reposts:      p.RepostCount,
			Replies:      p.ReplyCount,
			Views:        p.ViewCount,
			Media:        len(p.MediaURLs),
			Repost:       p.IsRepost,
			Quote:        p.IsQuote,
			URL:          p.PostURL,
		}
		if !p.Timestamp.IsZero() {
			posts[i].Time = p.Timestamp.UTC().Format("Jan 2 2006 15:04")
		}
	}
	return posts
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func buildPlainText(data ReportData) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s\n%s\n\n", data.Title, data.Date)

	for _, a := range data.Accounts {
		fmt.Fprintf(&buf, "@%-20s %-28s %4d posts", a.Handle, a.Label, a.Records)
		if a.StopCond != "" {
			fmt.Fprintf(&buf, "  (%s)", a.StopCond)
		}
		buf.WriteString("\n")
	}

	s := data.Stats
	fmt.Fprintf(&buf, "\n%d accounts: %d completed, %d skipped, %d rate limited\n",
		s.Accounts, s.Completed, s.Skipped, s.RateLimited)
	fmt.Fprintf(&buf, "%d posts in %s\n", s.Records, s.Duration)
	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 760px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #0f1419; margin-bottom: 5px; }
        h2 { font-size: 18px; margin: 0; }
        .date { color: #666; margin-bottom: 20px; }
        .stats { display: flex; gap: 16px; margin-bottom: 20px; color: #333; }
        .stats b { display: block; font-size: 20px; }
        .account { border-top: 1px solid #eee; padding: 15px 0; }
        .status { font-size: 13px; padding: 2px 8px; border-radius: 12px; background: #fdecea; color: #b3261e; }
        .status.ok { background: #e6f4ea; color: #137333; }
        .meta { color: #666; font-size: 13px; margin: 6px 0; }
        .error { color: #b3261e; font-size: 13px; }
        .post { border-left: 3px solid #eee; padding: 8px 12px; margin: 10px 0; }
        .author { font-weight: bold; color: #333; }
        .handle, .time { color: #666; font-weight: normal; }
        .flag { background: #eef3f8; color: #536471; padding: 1px 6px; border-radius: 10px; font-size: 11px; margin-left: 4px; }
        .content { margin: 6px 0; line-height: 1.4; white-space: pre-wrap; }
        .metrics { color: #666; font-size: 13px; }
        .link { color: #1d9bf0; text-decoration: none; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}} · run {{.RunID}}</div>

        <div class="stats">
            <div><b>{{.Stats.Accounts}}</b>accounts</div>
            <div><b>{{.Stats.Completed}}</b>completed</div>
            <div><b>{{.Stats.Skipped}}</b>skipped</div>
            <div><b>{{.Stats.RateLimited}}</b>rate limited</div>
            <div><b>{{.Stats.Records}}</b>posts</div>
        </div>

        {{range .Accounts}}
        <div class="account">
            <h2>@{{.Handle}} <span class="status{{if .Completed}} ok{{end}}">{{.Label}}</span></h2>
            <div class="meta">{{.Records}} posts · {{.Scrolls}} scrolls{{if .StopCond}} · stopped: {{.StopCond}}{{end}} · {{.Duration}}</div>
            {{if .Err}}<div class="error">{{.Err}}</div>{{end}}

            {{range .Posts}}
            <div class="post">
                <div class="author">{{.AuthorName}} <span class="handle">@{{.AuthorHandle}}</span>{{if .Time}} <span class="time">· {{.Time}}</span>{{end}}{{if .Repost}}<span class="flag">repost</span>{{end}}{{if .Quote}}<span class="flag">quote</span>{{end}}</div>
                <div class="content">{{.Content}}</div>
                <div class="metrics">{{.Likes}} likes · {{.Reposts}} reposts · {{.Replies}} replies · {{.Views}} views{{if .Media}} · {{.Media}} media{{end}}</div>
                <a href="{{.URL}}" class="link">View on X →</a>
            </div>
            {{end}}
        </div>
        {{end}}

        <div class="footer">
            {{.Stats.Records}} posts in {{.Stats.Duration}} · Generated by xscrape
        </div>
    </div>
</body>
</html>`
