package convert

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/akbstat/fusion/internal/model"
)

// Pool is the ConvertPool worker pool: N workers consuming ConvertTasks
// from a single dispatcher, logging their progress, and firing OnSuccess
// exactly once per successfully converted task.
type Pool struct {
	Workers   int
	Converter *Converter
	Logf      func(format string, args ...any)
	OnSuccess func()
}

// Run sorts tasks ascending by SourceSize (shortest-job-first) and drains
// them through Workers goroutines, blocking until every task has been
// dequeued and processed (successfully or not). A single task's failure
// never stops the pool.
func (p *Pool) Run(ctx context.Context, tasks []model.ConvertTask) {
	sorted := make([]model.ConvertTask, len(tasks))
	copy(sorted, tasks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SourceSize < sorted[j].SourceSize })

	n := p.Workers
	if n <= 0 {
		n = 5
	}

	ch := make(chan model.ConvertTask)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go p.worker(ctx, i, ch, &wg)
	}

	for _, task := range sorted {
		ch <- task
	}
	close(ch)

	wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int, tasks <-chan model.ConvertTask, wg *sync.WaitGroup) {
	defer wg.Done()
	p.logf("convert worker %d launch", id)
	for task := range tasks {
		p.logf("convert worker %d start %s", id, task.Source)
		if err := p.Converter.Convert(ctx, task.Source, task.Destination, task.ScriptDir); err != nil {
			p.logf("[ERROR] convert worker %d: %s because: %v", id, task.Source, err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if p.OnSuccess != nil {
			p.OnSuccess()
		}
		p.logf("convert worker %d complete %s", id, task.Source)
		time.Sleep(100 * time.Millisecond)
	}
	p.logf("convert worker %d exit", id)
}

func (p *Pool) logf(format string, args ...any) {
	if p.Logf == nil {
		return
	}
	p.Logf(fmt.Sprintf(format, args...))
}
