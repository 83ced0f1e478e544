// Package batch runs independent per-track jobs a few at a time, keeping
// each job's failure to itself.
package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/logging"
)

// DefaultWidth is the number of jobs run concurrently per window.
const DefaultWidth = 4

// JobState is the lifecycle state of a job.
type JobState int

const (
	Pending JobState = iota
	Decoding
	Rendering
	Done
	Failed
)

func (s JobState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Decoding:
		return "decoding"
	case Rendering:
		return "rendering"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("JobState(%d)", int(s))
}

// Job is one unit of work. A job is owned by exactly one goroutine while
// it runs.
type Job struct {
	ID     string
	Name   string
	Path   string
	State  JobState
	Err    error
	Output []byte
}

// Func processes one job. It may advance job.State and set job.Output;
// the runner sets Done or Failed from the returned error.
type Func func(ctx context.Context, job *Job) error

// ProgressFunc is called after each job finishes. Calls are serialized.
type ProgressFunc func(done, total int, job Job)

// Runner executes jobs in windows of Width: every job in a window runs
// concurrently and the next window starts once the current one is done.
type Runner struct {
	Width      int
	Logger     logrus.FieldLogger
	OnProgress ProgressFunc
}

// Result summarizes a run. Jobs are in input order.
type Result struct {
	Jobs      []Job
	Succeeded int
	Failed    int
	Canceled  bool
}

// Outputs returns the outputs of successful jobs in input order.
func (r Result) Outputs() []Job {
	var out []Job
	for _, j := range r.Jobs {
		if j.State == Done {
			out = append(out, j)
		}
	}
	return out
}

// Run processes jobs with fn. A canceled context stops new windows from
// starting. Jobs of the window that was running finish but their results
// are dropped; they and every unstarted job are reported failed with the
// context error. Earlier windows keep their results.
func (r *Runner) Run(ctx context.Context, jobs []Job, fn Func) Result {
	width := r.Width
	if width <= 0 {
		width = DefaultWidth
	}
	log := logging.OrDiscard(r.Logger)

	res := Result{Jobs: make([]Job, len(jobs))}
	copy(res.Jobs, jobs)
	total := len(res.Jobs)

	var (
		mu   sync.Mutex
		done int
	)
	report := func(job Job) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if r.OnProgress != nil {
			r.OnProgress(done, total, job)
		}
	}

	cutoff := total
	for start := 0; start < total; start += width {
		if ctx.Err() != nil {
			cutoff = start
			break
		}
		end := min(start+width, total)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(job *Job) {
				defer wg.Done()
				runJob(ctx, job, fn)
				if job.State == Failed {
					log.WithFields(logrus.Fields{
						"function": "Run",
						"job":      job.Name,
						"error":    job.Err,
					}).Error("job failed")
				} else {
					log.WithFields(logrus.Fields{
						"function": "Run",
						"job":      job.Name,
					}).Info("job finished")
				}
				report(*job)
			}(&res.Jobs[i])
		}
		wg.Wait()

		if ctx.Err() != nil {
			cutoff = start
			break
		}
	}

	if cutoff < total {
		res.Canceled = true
		for i := cutoff; i < total; i++ {
			res.Jobs[i].State = Failed
			res.Jobs[i].Err = ctx.Err()
			res.Jobs[i].Output = nil
		}
	}

	for _, j := range res.Jobs {
		switch j.State {
		case Done:
			res.Succeeded++
		case Failed:
			res.Failed++
		}
	}
	return res
}

// runJob calls fn with panics turned into job failures.
func runJob(ctx context.Context, job *Job, fn Func) {
	defer func() {
		if p := recover(); p != nil {
			job.State = Failed
			job.Err = fmt.Errorf("job %s panicked: %v", job.Name, p)
			job.Output = nil
		}
	}()

	if err := fn(ctx, job); err != nil {
		job.State = Failed
		job.Err = err
		job.Output = nil
		return
	}
	job.State = Done
	job.Err = nil
}
