package fusionlog

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerMultiWriterSingleReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	l, err := New(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.Write("line from writer")
			_ = n
		}(i)
	}
	wg.Wait()
	l.Close()

	all, err := l.ReadAll()
	require.NoError(t, err)
	require.Equal(t, 5, countLines(all))
}

func TestLoggerReadIsIncremental(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	l, err := New(path)
	require.NoError(t, err)

	l.Write("first")
	l.Close()

	first, err := l.Read()
	require.NoError(t, err)
	require.Contains(t, first, "first")

	second, err := l.Read()
	require.NoError(t, err)
	require.Empty(t, second, "a second Read returns only bytes appended since the first")

	l2, err := New(filepath.Join(t.TempDir(), "log2.txt"))
	require.NoError(t, err)
	l2.Write("a")
	l2.Write("b")
	l2.Close()
	all, err := l2.ReadAll()
	require.NoError(t, err)
	require.Equal(t, 2, countLines(all))
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}
