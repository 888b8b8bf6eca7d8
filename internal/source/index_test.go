package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeSourceJSON(t *testing.T, dir string, records []Record) {
	t.Helper()
	raw, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "source.json"), raw, 0o644))
}

func TestIsUpdatedScenarioC(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "f.rtf")
	dst := filepath.Join(dir, "f.pdf")
	require.NoError(t, os.WriteFile(src, []byte("{\\rtf1 body}"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("%PDF-1.4"), 0o644))

	mtime := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, mtime, mtime))
	writeSourceJSON(t, dir, []Record{{File: src, ModifiedAt: mtime.Unix()}})

	idx, err := Load(dir)
	require.NoError(t, err)
	require.False(t, idx.IsUpdated(src, dst))

	newer := mtime.Add(time.Hour * 2)
	require.NoError(t, os.Chtimes(src, newer, newer))
	require.True(t, idx.IsUpdated(src, dst))
}

func TestIsUpdatedNoRecordOrMissingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "f.rtf")
	dst := filepath.Join(dir, "f.pdf")
	require.NoError(t, os.WriteFile(src, []byte("{\\rtf1 body}"), 0o644))

	idx, err := Load(dir)
	require.NoError(t, err)
	require.True(t, idx.IsUpdated(src, dst), "no record at all forces update")

	require.NoError(t, os.WriteFile(dst, []byte("%PDF-1.4"), 0o644))
	mtime := time.Now()
	require.NoError(t, os.Chtimes(src, mtime, mtime))
	writeSourceJSON(t, dir, []Record{{File: src, ModifiedAt: mtime.Unix()}})

	idx, err = Load(dir)
	require.NoError(t, err)
	require.NoError(t, os.Remove(dst))
	require.True(t, idx.IsUpdated(src, dst), "missing destination forces update regardless of mtime")
}

func TestIsUpdatedSourceGone(t *testing.T) {
	dir := t.TempDir()
	idx, err := Load(dir)
	require.NoError(t, err)
	require.True(t, idx.IsUpdated(filepath.Join(dir, "missing.rtf"), filepath.Join(dir, "missing.pdf")))
}

func TestLoadMissingFileYieldsEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	idx, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, idx)
}

func TestRefreshScansRTFOnly(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	require.NoError(t, os.Mkdir(srcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.rtf"), []byte(`{\rtf1\ansi body}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "b.txt"), []byte("not rtf"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(srcDir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "sub", "c.rtf"), []byte(`{\rtf1\ansi body}`), 0o644))

	idx, err := Load(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Refresh(srcDir))

	raw, err := os.ReadFile(filepath.Join(dir, "source.json"))
	require.NoError(t, err)
	var records []Record
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 1, "scan is non-recursive and skips non-rtf files")
	require.Equal(t, filepath.Join(srcDir, "a.rtf"), records[0].File)
}
