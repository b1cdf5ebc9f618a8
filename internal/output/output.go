// Package output writes scraped records to files: one file per account and
// format, plus combined results files when the sink is closed.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibeckermayer/xscrape/internal/types"
)

// CombinedName is the base name of the files holding every account's
// records. SafeName never keeps a dot, so no account file can take it.
const CombinedName = "results.all"

// Columns is the flat record layout shared by CSV and XLSX
var Columns = []string{
	"post_id", "post_url", "account_handle", "account_display_name", "timestamp",
	"text_content", "media_urls", "reply_count", "repost_count", "like_count",
	"view_count", "is_repost", "is_quote", "scraped_at",
}

// writer encodes records to one file format
type writer interface {
	ext() string
	write(path string, records []types.PostRecord) error
}

// FileSink writes per-account files in each configured format
type FileSink struct {
	dir     string
	writers []writer
	log     zerolog.Logger

	mu  sync.Mutex
	all []types.PostRecord
}

// NewFileSink creates the output directory and a sink for formats
// (json, csv, xlsx)
func NewFileSink(dir string, formats []string, log zerolog.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	s := &FileSink{dir: dir, log: log.With().Str("component", "output").Logger()}
	for _, f := range formats {
		switch strings.ToLower(f) {
		case "json":
			s.writers = append(s.writers, jsonWriter{})
		case "csv":
			s.writers = append(s.writers, csvWriter{})
		case "xlsx":
			s.writers = append(s.writers, xlsxWriter{})
		default:
			return nil, fmt.Errorf("unknown output format %q", f)
		}
	}
	return s, nil
}

// Write saves an account's records. Accounts without records get no files.
func (s *FileSink) Write(account string, records []types.PostRecord) error {
	s.mu.Lock()
	s.all = append(s.all, records...)
	s.mu.Unlock()

	if len(records) == 0 {
		return nil
	}
	return s.writeAll(SafeName(account), records)
}

// Close writes the combined results files
func (s *FileSink) Close() error {
	s.mu.Lock()
	all := s.all
	s.mu.Unlock()

	if len(all) == 0 {
		return nil
	}
	return s.writeAll(CombinedName, all)
}

// Dir returns the output directory
func (s *FileSink) Dir() string {
	return s.dir
}

func (s *FileSink) writeAll(base string, records []types.PostRecord) error {
	for _, w := range s.writers {
		path := filepath.Join(s.dir, base+w.ext())
		if err := w.write(path, records); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		s.log.Info().Str("file", path).Int("records", len(records)).Msg("saved")
	}
	return nil
}

// SafeName keeps only characters that are safe in a file name
func SafeName(handle string) string {
	var b strings.Builder
	for _, r := range handle {
		if r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "account"
	}
	return b.String()
}

// row flattens a record in Columns order; list fields are joined with "; "
func row(r types.PostRecord) []string {
	ts := ""
	if !r.Timestamp.IsZero() {
		ts = r.Timestamp.UTC().Format(time.RFC3339)
	}
	return []string{
		r.PostID,
		r.PostURL,
		r.AccountHandle,
		r.AccountDisplayName,
		ts,
		r.TextContent,
		strings.Join(r.MediaURLs, "; "),
		strconv.Itoa(r.ReplyCount),
		strconv.Itoa(r.RepostCount),
		strconv.Itoa(r.LikeCount),
		strconv.Itoa(r.ViewCount),
		strconv.FormatBool(r.IsRepost),
		strconv.FormatBool(r.IsQuote),
		r.ScrapedAt.UTC().Format(time.RFC3339),
	}
}
