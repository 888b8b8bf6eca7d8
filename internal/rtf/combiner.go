// Package rtf implements byte-level RTF concatenation (RtfCombiner) and
// the worker pool that drives it (RtfCombinePool).
package rtf

import (
	"bytes"
	"os"
)

const (
	widowctrl = `\widowctrl`
	pagePar   = `{\page\par}`
)

// Combine concatenates the bodies of files into destination, separated by
// page-break groups. destination is removed first if it exists. A source
// missing either sentinel (\widowctrl or a trailing `}`) is silently
// skipped.
func Combine(files []string, destination string) error {
	if err := os.Remove(destination); err != nil && !os.IsNotExist(err) {
		return err
	}

	out, err := os.OpenFile(destination, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	headerWritten := false
	written := 0
	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		start, end, ok := extractFileContent(data)
		if !ok {
			continue
		}
		if !headerWritten {
			if _, err := out.Write(data[:start]); err != nil {
				return err
			}
			headerWritten = true
		}
		if _, err := out.Write(data[start:end]); err != nil {
			return err
		}
		written++
		if i != len(files)-1 {
			if _, err := out.WriteString(pagePar); err != nil {
				return err
			}
		}
	}
	_, err = out.WriteString("}")
	return err
}

// extractFileContent locates the body span [start, end) of an RTF
// document: start is the byte position of the \widowctrl sentinel, end is
// the position of the last `}` byte. Returns ok=false if either sentinel
// is absent.
func extractFileContent(data []byte) (start, end int, ok bool) {
	last := bytes.LastIndexByte(data, '}')
	if last < 0 {
		return 0, 0, false
	}
	s, _, found := patternPosition(widowctrl, data, 0)
	if !found {
		return 0, 0, false
	}
	return s, last, true
}

// patternPosition searches forward from pointer for the first occurrence
// of pattern, returning the [start, end) span at which it occurs.
func patternPosition(pattern string, source []byte, pointer int) (start, end int, found bool) {
	p := []byte(pattern)
	if pointer > len(source) {
		return 0, 0, false
	}
	idx := bytes.Index(source[pointer:], p)
	if idx < 0 {
		return 0, 0, false
	}
	start = pointer + idx
	return start, start + len(p), true
}
