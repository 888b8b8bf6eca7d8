package fusion

import (
	"context"

	"github.com/akbstat/fusion/internal/convert"
	"github.com/akbstat/fusion/internal/model"
	"github.com/akbstat/fusion/internal/pdf"
	"github.com/akbstat/fusion/internal/progress"
	"github.com/akbstat/fusion/internal/rtf"
	"github.com/akbstat/fusion/internal/source"
)

// Controller is the FusionController: the wiring layer that builds task
// lists, spawns pools, and enforces stage ordering. It does not execute
// work itself.
type Controller struct {
	Workers    int
	Converter  *convert.Converter
	CombineBin string
	OutlineBin string

	Logf func(format string, args ...any)
}

// Run derives the full task set from param, filters Stage A's convert
// tasks against the run's SourceIndex (skipping sources that have not
// changed since their last successful conversion), builds a ProgressState
// sized to the post-filter totals, spawns Stage A, and arranges for Stage
// B to spawn only once Stage A's combine gate opens. Run itself returns
// immediately with the ProgressState; callers poll Progress() to observe
// the run to completion, matching the way the original pipeline's caller
// drives a progress bar off of polled state rather than blocking on the
// whole run.
func (c *Controller) Run(ctx context.Context, param *FusionParam) (*progress.State, error) {
	idx, err := source.Load(param.Destination)
	if err != nil {
		return nil, err
	}

	convertTasks := idx.FilterTasks(param.ToConvertTasks())
	pdfParams, rtfParams := param.ToCombineParams()

	state := progress.New(len(convertTasks), len(pdfParams)+len(rtfParams))

	go c.convert(ctx, convertTasks, param, idx, state)

	go func() {
		state.WaitCombineGate()
		c.combine(pdfParams, rtfParams, state)
	}()

	return state, nil
}

// convert spawns ConvertPool and runs it to completion, pulsing state on
// every successful conversion. Once the pool drains, the SourceIndex is
// refreshed from param.Source so the next run's incremental filter sees
// this run's mtimes (a no-op if param.Source is
// unset).
func (c *Controller) convert(ctx context.Context, tasks []model.ConvertTask, param *FusionParam, idx *source.Index, state *progress.State) {
	pool := &convert.Pool{
		Workers:   c.Workers,
		Converter: c.Converter,
		Logf:      c.Logf,
		OnSuccess: state.ConvertDone,
	}
	pool.Run(ctx, tasks)

	if param.Source != "" {
		if err := idx.Refresh(param.Source); err != nil {
			c.logf("[ERROR] source index refresh: %v", err)
		}
	}
}

// combine spawns PdfCombinePool and RtfCombinePool in parallel and waits
// for both to drain. This only ever runs after convert's
// ConvertDone pulses have satisfied the combine gate.
func (c *Controller) combine(pdfParams []model.PdfCombineParam, rtfParams []model.RtfCombineParam, state *progress.State) {
	done := make(chan struct{}, 2)

	go func() {
		pool := &pdf.Pool{
			Workers:    c.Workers,
			CombineBin: c.CombineBin,
			OutlineBin: c.OutlineBin,
			Logf:       c.Logf,
			OnSuccess:  state.CombineDone,
		}
		pool.Run(pdfParams)
		done <- struct{}{}
	}()

	go func() {
		pool := &rtf.Pool{
			Workers:   c.Workers,
			Logf:      c.Logf,
			OnSuccess: state.CombineDone,
		}
		pool.Run(rtfParams)
		done <- struct{}{}
	}()

	<-done
	<-done
}

func (c *Controller) logf(format string, args ...any) {
	if c.Logf == nil {
		return
	}
	c.Logf(format, args...)
}
