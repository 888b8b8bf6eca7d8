package convert

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/akbstat/fusion/internal/model"
	"github.com/stretchr/testify/require"
)

// fakeConverterScript returns a path to a tiny shell script that copies
// its first arg to its second arg, standing in for the opaque external
// RTF->PDF converter.
func fakeConverterScript(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "convert.sh")
	body := "#!/bin/sh\ncp \"$1\" \"$2\"\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func TestPoolDispatchOrderAscendingBySize(t *testing.T) {
	script := fakeConverterScript(t)
	dir := t.TempDir()

	names := []string{"c", "a", "b"}
	sizes := map[string]uint64{"c": 300, "a": 100, "b": 200}
	var tasks []model.ConvertTask
	for _, name := range names {
		src := filepath.Join(dir, name+".rtf")
		require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
		tasks = append(tasks, model.ConvertTask{
			Source:      src,
			Destination: filepath.Join(dir, name+".pdf"),
			SourceSize:  sizes[name],
			ScriptDir:   dir,
		})
	}

	var mu sync.Mutex
	var startOrder []string
	successCount := 0

	p := &Pool{
		Workers:   1, // single worker makes dispatch order observable
		Converter: &Converter{Bin: script},
		OnSuccess: func() {
			mu.Lock()
			successCount++
			mu.Unlock()
		},
		Logf: func(format string, args ...any) {
			line := format
			if len(args) > 0 {
				line = strings.TrimSpace(args[len(args)-1].(string))
			}
			if strings.Contains(format, "start") {
				mu.Lock()
				startOrder = append(startOrder, line)
				mu.Unlock()
			}
		},
	}

	p.Run(context.Background(), tasks)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, successCount)
	require.Len(t, startOrder, 3)
	require.True(t, strings.HasSuffix(startOrder[0], "a.rtf"))
	require.True(t, strings.HasSuffix(startOrder[1], "b.rtf"))
	require.True(t, strings.HasSuffix(startOrder[2], "c.rtf"))
}

func TestPoolContinuesAfterTaskFailure(t *testing.T) {
	script := fakeConverterScript(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.rtf")
	require.NoError(t, os.WriteFile(good, []byte("x"), 0o644))

	tasks := []model.ConvertTask{
		{Source: filepath.Join(dir, "missing.rtf"), Destination: filepath.Join(dir, "missing.pdf"), SourceSize: 1, ScriptDir: dir},
		{Source: good, Destination: filepath.Join(dir, "good.pdf"), SourceSize: 2, ScriptDir: dir},
	}

	var mu sync.Mutex
	successCount := 0
	p := &Pool{
		Workers:   2,
		Converter: &Converter{Bin: script},
		OnSuccess: func() {
			mu.Lock()
			successCount++
			mu.Unlock()
		},
		Logf: func(string, ...any) {},
	}

	p.Run(context.Background(), tasks)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, successCount, "the missing-source task fails but the pool still finishes the other")
}
