package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"scan-in-analytics/pkg/services/extraction"
)

// Corpus is the fully loaded input file.
type Corpus struct {
	Path     string
	FileName string
	Checksum string
	Records  []extraction.RawRecord
}

// LoadCorpus reads and decodes a JSON array of extraction records. Numbers
// are kept as json.Number so amounts are not rounded through float64.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FatalError{Path: path, Err: err}
	}
	return DecodeCorpus(path, data)
}

func DecodeCorpus(path string, data []byte) (*Corpus, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []extraction.RawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, &FatalError{Path: path, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	return &Corpus{
		Path:     path,
		FileName: filepath.Base(path),
		Checksum: fmt.Sprintf("%016x", xxhash.Sum64(data)),
		Records:  records,
	}, nil
}

// Chunks partitions items into contiguous slices of at most size elements,
// preserving order.
func Chunks[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
