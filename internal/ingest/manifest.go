package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	ragerr "github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/errors"
)

// ManifestEntry describes one source document in the manifest.
type ManifestEntry struct {
	// FileName is the document's name inside the raw data directory.
	FileName string `json:"file_name"`

	// Title is the human readable document title.
	Title string `json:"title"`

	// URL is where the document came from, if anywhere.
	URL string `json:"url,omitempty"`
}

// LoadManifest reads the sources manifest, a JSON array of entries.
// Every entry must name a file.
func LoadManifest(path string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeFileNotFound, "failed to read sources manifest", err).
			WithDetail("path", path)
	}

	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, ragerr.New(ragerr.ErrCodeConfigInvalid, "sources manifest is not valid JSON", err).
			WithDetail("path", path)
	}

	for i, entry := range entries {
		if entry.FileName == "" {
			return nil, ragerr.New(ragerr.ErrCodeConfigInvalid,
				fmt.Sprintf("manifest entry %d is missing file_name", i), nil).
				WithDetail("path", path)
		}
	}

	return entries, nil
}
