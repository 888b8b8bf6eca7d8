package rtf

import (
	"fmt"
	"sync"
	"time"

	"github.com/akbstat/fusion/internal/model"
)

// Pool is the RtfCombinePool worker pool: N workers each running one
// RtfCombineParam through Combine.
type Pool struct {
	Workers   int
	Logf      func(format string, args ...any)
	OnSuccess func()
}

// Run drains params through Workers goroutines, blocking until every
// param has been processed.
func (p *Pool) Run(params []model.RtfCombineParam) {
	n := p.Workers
	if n <= 0 {
		n = 5
	}

	ch := make(chan model.RtfCombineParam)
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

func (p *Pool) worker(id int, params <-chan model.RtfCombineParam, wg *sync.WaitGroup) {
	defer wg.Done()
	p.logf("rtf combine worker %d launch", id)
	for param := range params {
		p.logf("rtf combine worker %d start %s", id, param.Destination)

		if err := Combine(param.Files, param.Destination); err != nil {
			p.logf("[ERROR] rtf combine worker %d: %s because: %v", id, param.Destination, err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if p.OnSuccess != nil {
			p.OnSuccess()
		}
		p.logf("rtf combine worker %d complete %s", id, param.Destination)
		time.Sleep(100 * time.Millisecond)
	}
	p.logf("rtf combine worker %d exit", id)
}

func (p *Pool) logf(format string, args ...any) {
	if p.Logf == nil {
		return
	}
	p.Logf(fmt.Sprintf(format, args...))
}
