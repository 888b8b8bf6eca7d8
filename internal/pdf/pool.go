package pdf

import (
	"fmt"
	"sync"
	"time"

	"github.com/akbstat/fusion/internal/model"
)

// Pool is the PdfCombinePool worker pool: N workers each running one
// PdfCombineParam through a Unit, logging progress and firing OnSuccess
// exactly once per unit that reaches Done.
type Pool struct {
	Workers    int
	CombineBin string
	OutlineBin string
	Logf       func(format string, args ...any)
	OnSuccess  func()
}

// Run drains params through Workers goroutines, blocking until every
// param has been processed. A single unit's failure never stops the
// pool; an OutlineWriteFailed failure still logs an error but is not
// treated as blocking subsequent units.
func (p *Pool) Run(params []model.PdfCombineParam) {
	n := p.Workers
	if n <= 0 {
		n = 5
	}

	ch := make(chan model.PdfCombineParam)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go p.worker(i, ch, &wg)
	}

	for _, param := range params {
		ch <- param
	}
	close(ch)

	wg.Wait()
}

func (p *Pool) worker(id int, params <-chan model.PdfCombineParam, wg *sync.WaitGroup) {
	defer wg.Done()
	p.logf("pdf combine worker %d launch", id)
	for param := range params {
		p.logf("pdf combine worker %d start %s", id, param.Destination)

		unit := &Unit{Param: param, CombineBin: p.CombineBin, OutlineBin: p.OutlineBin}
		_, err := unit.Run()
		if err != nil {
			// Only a unit that reaches Done pulses, even if the
			// failure was an outline-write error and the PDF itself
			// exists, so this is a partial success; no pulse is sent.
			p.logf("[ERROR] pdf combine worker %d: %s because: %v", id, param.Destination, err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if p.OnSuccess != nil {
			p.OnSuccess()
		}
		p.logf("pdf combine worker %d complete %s", id, param.Destination)
		time.Sleep(100 * time.Millisecond)
	}
	p.logf("pdf combine worker %d exit", id)
}

func (p *Pool) logf(format string, args ...any) {
	if p.Logf == nil {
		return
	}
	p.Logf(fmt.Sprintf(format, args...))
}
