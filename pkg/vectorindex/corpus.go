package vectorindex

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadCorpus reads a JSON array of documents from disk and builds an index
// over them. The corpus is fixed at startup and read-only afterwards.
func LoadCorpus(path string, dims int) (*Index, error) {
	idx, err := New(dims)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return idx, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}

	if err := idx.Add(docs...); err != nil {
		return nil, fmt.Errorf("index corpus: %w", err)
	}
	return idx, nil
}
