// Package convert implements Stage A: the bounded worker pool that
// converts RTF sources to PDF via an external converter process, and the
// subprocess-invocation wrapper around that opaque converter.
package convert

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Converter invokes the external RTF->PDF conversion binary for one task,
// treating the converter as an opaque subprocess: bounded concurrency (via
// the caller's Pool), a hard timeout, and process-kill on timeout.
type Converter struct {
	// Bin is the path to the external rtf->pdf converter executable.
	Bin string
	// Timeout bounds a single conversion; zero means no timeout.
	Timeout time.Duration
}

// Convert runs source -> destination using scriptDir as scratch space for
// the converter, and returns an error if the subprocess exits non-zero or
// the timeout elapses.
func (c *Converter) Convert(ctx context.Context, source, destination, scriptDir string) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Bin, source, destination, scriptDir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("convert %s: timed out: %w", source, ctx.Err())
		}
		return fmt.Errorf("convert %s: %w: %s", source, err, out)
	}
	return nil
}
