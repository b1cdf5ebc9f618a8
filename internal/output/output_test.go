package output

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ibeckermayer/xscrape/internal/types"
)

func sample(id string) types.PostRecord {
	return types.PostRecord{
		PostID:        id,
		PostURL:       "https://x.com/golang/status/" + id,
		AccountHandle: "golang",
		Timestamp:     time.Date(2026, 5, 9, 8, 30, 0, 0, time.UTC),
		TextContent:   "text, with \"quotes\"",
		MediaURLs:     []string{"https://pbs.twimg.com/media/a?format=jpg&name=large", "https://pbs.twimg.com/media/b?format=jpg&name=large"},
		LikeCount:     1200,
		IsRepost:      true,
		ScrapedAt:     time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileSinkWritesPerAccountAndCombined(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, []string{"json", "csv", "xlsx"}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, sink.Write("golang", []types.PostRecord{sample("1"), sample("2")}))
	require.NoError(t, sink.Write("nobody", nil))
	require.NoError(t, sink.Write("rust", []types.PostRecord{sample("3")}))
	require.NoError(t, sink.Close())

	for _, name := range []string{"golang", "rust", CombinedName} {
		for _, ext := range []string{".json", ".csv", ".xlsx"} {
			assert.FileExists(t, filepath.Join(dir, name+ext))
		}
	}
	assert.NoFileExists(t, filepath.Join(dir, "nobody.json"))

	data, err := os.ReadFile(filepath.Join(dir, "results.all.json"))
	require.NoError(t, err)
	var all []types.PostRecord
	require.NoError(t, json.Unmarshal(data, &all))
	require.Len(t, all, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].PostID, all[1].PostID, all[2].PostID})
}

func TestCombinedFilesDoNotReplaceAccountNamedResults(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, []string{"json"}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, sink.Write("results", []types.PostRecord{sample("1")}))
	require.NoError(t, sink.Write("golang", []types.PostRecord{sample("2")}))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(filepath.Join(dir, "results.json"))
	require.NoError(t, err)
	var own []types.PostRecord
	require.NoError(t, json.Unmarshal(data, &own))
	require.Len(t, own, 1)
	assert.Equal(t, "1", own[0].PostID)

	assert.FileExists(t, filepath.Join(dir, CombinedName+".json"))
	assert.NotEqual(t, CombinedName, SafeName(CombinedName))
}

func TestCSVLayout(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, []string{"csv"}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, sink.Write("golang", []types.PostRecord{sample("1")}))

	f, err := os.Open(filepath.Join(dir, "golang.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Columns, rows[0])

	got := map[string]string{}
	for i, c := range Columns {
		got[c] = rows[1][i]
	}
	assert.Equal(t, "text, with \"quotes\"", got["text_content"])
	assert.Equal(t, "https://pbs.twimg.com/media/a?format=jpg&name=large; https://pbs.twimg.com/media/b?format=jpg&name=large", got["media_urls"])
	assert.Equal(t, "1200", got["like_count"])
	assert.Equal(t, "true", got["is_repost"])
	assert.Equal(t, "2026-05-09T08:30:00Z", got["timestamp"])
}

func TestXLSXLayout(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, []string{"xlsx"}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, sink.Write("golang", []types.PostRecord{sample("1")}))

	f, err := excelize.OpenFile(filepath.Join(dir, "golang.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "1200", rows[1][9])
}

func TestUnknownFormat(t *testing.T) {
	_, err := NewFileSink(t.TempDir(), []string{"parquet"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "golang", SafeName("golang"))
	assert.Equal(t, "a_b-c", SafeName("a_b-c/../"))
	assert.Equal(t, "account", SafeName("../"))
}
