package store

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	naragerr "github.com/naragtive/naragtive/internal/errors"
)

// Columnar file format. One file per named store, four columns:
// ids, texts, embeddings (flattened with a fixed dimension), and
// serialized metadata blobs. Gob framing matches how the rest of the
// data dir is persisted.
const (
	columnarMagic   = "naragtive/columnar"
	columnarVersion = 1
)

// columnarFile is the on-disk representation of an index.
type columnarFile struct {
	Magic      string
	Version    int
	Dimensions int
	IDs        []string
	Texts      []string
	Embeddings []float32 // len == len(IDs) * Dimensions
	Metadata   [][]byte  // JSON blob per record
}

// writeColumnar persists records atomically: encode to a temp file in
// the same directory, fsync, then rename over the destination. A crash
// mid-write never leaves a corrupt index file behind.
func writeColumnar(path string, dimensions int, records []DocumentRecord) error {
	cf := columnarFile{
		Magic:      columnarMagic,
		Version:    columnarVersion,
		Dimensions: dimensions,
		IDs:        make([]string, len(records)),
		Texts:      make([]string, len(records)),
		Embeddings: make([]float32, 0, len(records)*dimensions),
		Metadata:   make([][]byte, len(records)),
	}

	for i, rec := range records {
		if len(rec.Embedding) != dimensions {
			return naragerr.New(naragerr.ErrCodeDimensionMismatch,
				fmt.Sprintf("record %q has %d dimensions, index has %d", rec.ID, len(rec.Embedding), dimensions), nil)
		}
		cf.IDs[i] = rec.ID
		cf.Texts[i] = rec.Text
		cf.Embeddings = append(cf.Embeddings, rec.Embedding...)

		blob, err := json.Marshal(rec.Metadata)
		if err != nil {
			return naragerr.Wrap(naragerr.ErrCodeSaveFailed, fmt.Errorf("marshal metadata for %q: %w", rec.ID, err))
		}
		cf.Metadata[i] = blob
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	w := bufio.NewWriter(file)
	if err := gob.NewEncoder(w).Encode(&cf); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, fmt.Errorf("encode columnar file: %w", err))
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	return nil
}

// readColumnar loads records from a columnar file, validating the
// schema and that all rows share one embedding dimension.
func readColumnar(path string) (dimensions int, records []DocumentRecord, err error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil, naragerr.MissingFileError(path)
		}
		return 0, nil, naragerr.Wrap(naragerr.ErrCodeFileCorrupt, err)
	}
	defer file.Close()

	var cf columnarFile
	if err := gob.NewDecoder(bufio.NewReader(file)).Decode(&cf); err != nil {
		return 0, nil, naragerr.New(naragerr.ErrCodeFileCorrupt,
			fmt.Sprintf("unreadable index file %s: %v", path, err), err)
	}

	if cf.Magic != columnarMagic {
		return 0, nil, naragerr.New(naragerr.ErrCodeFileCorrupt,
			fmt.Sprintf("%s is not a naragtive index file", path), nil)
	}
	if cf.Version != columnarVersion {
		return 0, nil, naragerr.New(naragerr.ErrCodeFileCorrupt,
			fmt.Sprintf("unsupported index file version %d", cf.Version), nil)
	}
	if len(cf.Texts) != len(cf.IDs) || len(cf.Metadata) != len(cf.IDs) {
		return 0, nil, naragerr.New(naragerr.ErrCodeFileCorrupt,
			fmt.Sprintf("column length mismatch in %s: %d ids, %d texts, %d metadata",
				path, len(cf.IDs), len(cf.Texts), len(cf.Metadata)), nil)
	}
	if cf.Dimensions <= 0 && len(cf.IDs) > 0 {
		return 0, nil, naragerr.New(naragerr.ErrCodeFileCorrupt,
			fmt.Sprintf("invalid embedding dimension %d in %s", cf.Dimensions, path), nil)
	}
	if len(cf.Embeddings) != len(cf.IDs)*cf.Dimensions {
		return 0, nil, naragerr.New(naragerr.ErrCodeDimensionMismatch,
			fmt.Sprintf("embedding column has %d floats, want %d (%d records x %d dims)",
				len(cf.Embeddings), len(cf.IDs)*cf.Dimensions, len(cf.IDs), cf.Dimensions), nil)
	}

	records = make([]DocumentRecord, len(cf.IDs))
	for i := range cf.IDs {
		var meta Metadata
		if err := json.Unmarshal(cf.Metadata[i], &meta); err != nil {
			return 0, nil, naragerr.New(naragerr.ErrCodeFileCorrupt,
				fmt.Sprintf("corrupt metadata blob for record %q", cf.IDs[i]), err)
		}

		// Each record gets its own copy so index rows stay immutable
		// even if the caller holds onto the slice.
		emb := make([]float32, cf.Dimensions)
		copy(emb, cf.Embeddings[i*cf.Dimensions:(i+1)*cf.Dimensions])

		records[i] = DocumentRecord{
			ID:        cf.IDs[i],
			Text:      cf.Texts[i],
			Embedding: emb,
			Metadata:  meta,
		}
	}

	return cf.Dimensions, records, nil
}
