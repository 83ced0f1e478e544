package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivier-w/beatboy/internal/audio"
	"github.com/olivier-w/beatboy/internal/wavenc"
)

func TestRunWindowsAndIsolation(t *testing.T) {
	jobs := NewJobs([]string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"})

	var running, peak int32
	fn := func(ctx context.Context, job *Job) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		if job.Name == "c" {
			return errors.New("boom")
		}
		if job.Name == "f" {
			panic("bad input")
		}
		job.Output = []byte(job.Name)
		return nil
	}

	var mu sync.Mutex
	var progress []int
	r := &Runner{OnProgress: func(done, total int, job Job) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 10, total)
		progress = append(progress, done)
	}}
	res := r.Run(context.Background(), jobs, fn)

	assert.LessOrEqual(t, int(peak), DefaultWidth)
	assert.Equal(t, 8, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	assert.False(t, res.Canceled)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, progress)

	require.Len(t, res.Jobs, 10)
	assert.Equal(t, Failed, res.Jobs[2].State)
	assert.EqualError(t, res.Jobs[2].Err, "boom")
	assert.Equal(t, Failed, res.Jobs[5].State)
	assert.Contains(t, res.Jobs[5].Err.Error(), "panicked")
	assert.Nil(t, res.Jobs[5].Output)

	var names []string
	for _, j := range res.Outputs() {
		names = append(names, string(j.Output))
	}
	assert.Equal(t, []string{"a", "b", "d", "e", "g", "h", "i", "j"}, names)

	assert.Equal(t, Pending, jobs[0].State, "input jobs are not mutated")
}

func TestRunWidth(t *testing.T) {
	var running, peak int32
	fn := func(ctx context.Context, job *Job) error {
		n := atomic.AddInt32(&running, 1)
		if n > atomic.LoadInt32(&peak) {
			atomic.StoreInt32(&peak, n)
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}
	r := &Runner{Width: 1}
	res := r.Run(context.Background(), NewJobs([]string{"a", "b", "c"}), fn)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, int32(1), peak)
}

func TestRunCanceledBetweenWindows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	fn := func(ctx context.Context, job *Job) error {
		atomic.AddInt32(&calls, 1)
		job.Output = []byte("x")
		if job.Name == "e" {
			cancel()
		}
		return nil
	}
	r := &Runner{Width: 2}
	res := r.Run(ctx, NewJobs([]string{"a", "b", "c", "d", "e", "f", "g"}), fn)

	assert.True(t, res.Canceled)
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls), "window with e finishes, g never starts")
	assert.Equal(t, 4, res.Succeeded)
	assert.Equal(t, 3, res.Failed)
	for _, j := range res.Jobs[4:] {
		assert.Equal(t, Failed, j.State)
		assert.ErrorIs(t, j.Err, context.Canceled)
		assert.Nil(t, j.Output)
	}
}

func TestRunEmpty(t *testing.T) {
	res := (&Runner{}).Run(context.Background(), nil, func(context.Context, *Job) error { return nil })
	assert.Empty(t, res.Jobs)
	assert.Zero(t, res.Succeeded)
}

func TestJobStateString(t *testing.T) {
	assert.Equal(t, "decoding", Decoding.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "JobState(42)", JobState(42).String())
}

func writeTrack(t *testing.T, dir, name string, frames int) string {
	t.Helper()
	buf := audio.NewSampleBuffer(8000, 1, frames)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = 0.25
	}
	path := filepath.Join(dir, name)
	require.NoError(t, wavenc.WriteFile(path, buf))
	return path
}

func TestExportTracks(t *testing.T) {
	dir := t.TempDir()
	good1 := writeTrack(t, dir, "one.wav", 8000)
	bad := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(bad, []byte("not audio at all"), 0o644))
	good2 := writeTrack(t, dir, "two.wav", 4000)

	r := &Runner{}
	opts := audio.ProcessingOptions{Normalize: true}
	entries, res := r.ExportTracks(context.Background(), []string{good1, bad, good2}, nil, audio.EQSettings{}, opts)

	require.Len(t, entries, 2)
	assert.Equal(t, "TAGGED_one.wav.wav", entries[0].Name)
	assert.Equal(t, "TAGGED_two.wav.wav", entries[1].Name)
	assert.Equal(t, "RIFF", string(entries[0].Data[:4]))
	assert.Len(t, entries[0].Data, 44+8000*2)
	assert.Len(t, entries[1].Data, 44+4000*2)

	assert.Equal(t, 1, res.Failed)
	assert.ErrorIs(t, res.Jobs[1].Err, audio.ErrDecode)
	assert.Equal(t, Failed, res.Jobs[1].State)
	assert.Equal(t, Done, res.Jobs[0].State)
}

func ExampleRunner_Run() {
	r := &Runner{Width: 2}
	res := r.Run(context.Background(), NewJobs([]string{"x.wav", "y.wav"}), func(ctx context.Context, job *Job) error {
		job.Output = []byte(job.Name)
		return nil
	})
	fmt.Println(res.Succeeded, res.Failed)
	// Output: 2 0
}
