package output

import (
	"encoding/json"
	"os"

	"github.com/ibeckermayer/xscrape/internal/types"
)

type jsonWriter struct{}

func (jsonWriter) ext() string { return ".json" }

func (jsonWriter) write(path string, records []types.PostRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
