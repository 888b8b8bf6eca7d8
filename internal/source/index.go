// Package source implements the incremental-build decision: which RTF
// sources need reconversion, persisted across runs as source.json.
package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/akbstat/fusion/internal/model"
	"github.com/gabriel-vasile/mimetype"
)

// Record mirrors one line of source.json: a source file path and the
// mtime (epoch seconds) it was last indexed at.
type Record struct {
	File       string `json:"file"`
	ModifiedAt int64  `json:"modified_at"`
}

// Index is the persistent source_path -> mtime map. Zero value is not
// usable; construct with Load.
type Index struct {
	mu       sync.RWMutex
	filepath string
	data     map[string]int64
}

// Load reads workspace/source.json. A missing file yields an empty index,
// not an error.
func Load(workspace string) (*Index, error) {
	idx := &Index{
		filepath: filepath.Join(workspace, "source.json"),
		data:     make(map[string]int64),
	}
	raw, err := os.ReadFile(idx.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	for _, r := range records {
		idx.data[r.File] = r.ModifiedAt
	}
	return idx, nil
}

// IsUpdated reports whether source needs reconversion to destination: true
// iff source does not exist, is not a regular file, its mtime is strictly
// newer than the stored record, destination does not exist, or no record
// exists for source.
func (idx *Index) IsUpdated(source, destination string) bool {
	info, err := os.Stat(source)
	if err != nil || info.IsDir() {
		return true
	}

	idx.mu.RLock()
	stored, ok := idx.data[source]
	idx.mu.RUnlock()
	if !ok {
		return true
	}

	if info.ModTime().Unix() > stored {
		return true
	}
	if _, err := os.Stat(destination); err != nil {
		return true
	}
	return false
}

// Filter returns the subset of sources (keyed source->destination) for
// which IsUpdated holds.
func (idx *Index) Filter(pairs map[string]string) map[string]string {
	out := make(map[string]string, len(pairs))
	for source, destination := range pairs {
		if idx.IsUpdated(source, destination) {
			out[source] = destination
		}
	}
	return out
}

// FilterTasks returns the subset of tasks for which IsUpdated(Source,
// Destination) holds, preserving order. This is the ConvertTask-shaped
// counterpart to Filter, used directly by the fusion controller.
func (idx *Index) FilterTasks(tasks []model.ConvertTask) []model.ConvertTask {
	out := make([]model.ConvertTask, 0, len(tasks))
	for _, t := range tasks {
		if idx.IsUpdated(t.Source, t.Destination) {
			out = append(out, t)
		}
	}
	return out
}

// Refresh rescans sourceDir (non-recursive) for *.rtf files verified by
// magic bytes, and truncates/rewrites source.json with the current mtimes
// of everything found.
func (idx *Index) Refresh(sourceDir string) error {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}

	records := make([]Record, 0, len(entries))
	data := make(map[string]int64, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".rtf") {
			continue
		}
		full := filepath.Join(sourceDir, entry.Name())
		if !looksLikeRTF(full) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mtime := info.ModTime().Unix()
		records = append(records, Record{File: full, ModifiedAt: mtime})
		data[full] = mtime
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	if err := os.Remove(idx.filepath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.WriteFile(idx.filepath, raw, 0o644); err != nil {
		return err
	}

	idx.mu.Lock()
	idx.data = data
	idx.mu.Unlock()
	return nil
}

func looksLikeRTF(path string) bool {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/rtf") {
			return true
		}
	}
	return false
}
