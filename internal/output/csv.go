package output

import (
	"encoding/csv"
	"os"

	"github.com/ibeckermayer/xscrape/internal/types"
)

type csvWriter struct{}

func (csvWriter) ext() string { return ".csv" }

func (csvWriter) write(path string, records []types.PostRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write(row(r)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
