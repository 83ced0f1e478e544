package batch

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/archive"
	"github.com/olivier-w/beatboy/internal/audio"
	"github.com/olivier-w/beatboy/internal/decode"
	"github.com/olivier-w/beatboy/internal/logging"
	"github.com/olivier-w/beatboy/internal/render"
	"github.com/olivier-w/beatboy/internal/wavenc"
)

// NewJobs builds one pending job per input path.
func NewJobs(paths []string) []Job {
	jobs := make([]Job, len(paths))
	for i, p := range paths {
		jobs[i] = Job{
			ID:   strconv.Itoa(i + 1),
			Name: filepath.Base(p),
			Path: p,
		}
	}
	return jobs
}

// ExportTracks decodes, renders and WAV-encodes every path with the shared
// tag, EQ and options. It returns one archive entry per successful track,
// named with archive.TaggedName, in input order.
func (r *Runner) ExportTracks(ctx context.Context, paths []string, tag *audio.SampleBuffer, eq audio.EQSettings, opts audio.ProcessingOptions) ([]archive.Entry, Result) {
	log := logging.OrDiscard(r.Logger)

	res := r.Run(ctx, NewJobs(paths), func(ctx context.Context, job *Job) error {
		job.State = Decoding
		start := time.Now()
		main, err := decode.DecodeFile(job.Path)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"function":    "ExportTracks",
			"file":        job.Name,
			"sample_rate": main.SampleRate,
			"frames":      main.Len(),
			"elapsed":     time.Since(start),
		}).Debug("decoded")

		job.State = Rendering
		out, err := render.Render(main, tag, eq, opts, render.WithLogger(log))
		if err != nil {
			return err
		}
		job.Output, err = wavenc.Encode(out)
		return err
	})

	var entries []archive.Entry
	for _, job := range res.Outputs() {
		entries = append(entries, archive.Entry{
			Name: archive.TaggedName(job.Name),
			Data: job.Output,
		})
	}
	return entries, res
}
