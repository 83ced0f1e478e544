package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/olivier-w/beatboy/internal/archive"
	"github.com/olivier-w/beatboy/internal/audio"
	"github.com/olivier-w/beatboy/internal/batch"
	"github.com/olivier-w/beatboy/internal/compositor"
	"github.com/olivier-w/beatboy/internal/config"
	"github.com/olivier-w/beatboy/internal/decode"
	"github.com/olivier-w/beatboy/internal/downloader"
	"github.com/olivier-w/beatboy/internal/logging"
	"github.com/olivier-w/beatboy/internal/media"
	"github.com/olivier-w/beatboy/internal/render"
	"github.com/olivier-w/beatboy/internal/ui"
	"github.com/olivier-w/beatboy/internal/video"
	"github.com/olivier-w/beatboy/internal/wavenc"
)

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// terminalSize returns the size of w, or 80×24 when it is not a terminal.
var terminalSize = func(w io.Writer) (int, int) {
	if f, ok := w.(*os.File); ok {
		if cols, rows, err := term.GetSize(f.Fd()); err == nil && cols > 0 && rows > 0 {
			return cols, rows
		}
	}
	return 80, 24
}

func newCommandFlags(name string, video bool, stderr io.Writer) *sessionFlags {
	f := newSessionFlags(name, video)
	f.fs.SetOutput(stderr)
	f.fs.Usage = func() {
		for _, c := range commands {
			if c.name == name {
				fmt.Fprintf(stderr, "Usage: beatboy %s %s\n\n%s.\n\nFlags:\n", c.name, c.usage, c.summary)
			}
		}
		f.fs.PrintDefaults()
	}
	return f
}

// env carries what a command needs once its flags are parsed.
type env struct {
	sess    config.Session
	log     *logrus.Logger
	tag     string
	dir     string
	cleanup func()
}

func newEnv(f *sessionFlags, sess config.Session, stderr io.Writer) *env {
	return &env{
		sess: sess,
		log:  logging.New(sess.LogLevel, stderr),
		tag:  f.tag,
	}
}

func (e *env) close() {
	if e.cleanup != nil {
		e.cleanup()
	}
}

// local returns a file path for arg, downloading URLs into a scratch
// directory that lives until close.
func (e *env) local(ctx context.Context, arg string) (string, error) {
	if !downloader.IsURL(arg) {
		return arg, nil
	}
	if e.dir == "" {
		dir, cleanup, err := downloader.TempDir()
		if err != nil {
			return "", fmt.Errorf("creating download dir: %w", err)
		}
		e.dir, e.cleanup = dir, cleanup
	}
	return downloader.LocalPath(ctx, arg, e.dir, e.log)
}

// loadTag decodes the -tag file, if any.
func (e *env) loadTag(ctx context.Context) (*audio.SampleBuffer, error) {
	if e.tag == "" {
		return nil, nil
	}
	path, err := e.local(ctx, e.tag)
	if err != nil {
		return nil, err
	}
	tag, err := decode.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("tag %s: %w", e.tag, err)
	}
	return tag, nil
}

// renderTrack decodes arg and runs it through the session's offline chain.
// It returns the rendered audio and the local path it was read from.
func (e *env) renderTrack(ctx context.Context, arg string) (*audio.SampleBuffer, string, error) {
	path, err := e.local(ctx, arg)
	if err != nil {
		return nil, "", err
	}
	tag, err := e.loadTag(ctx)
	if err != nil {
		return nil, "", err
	}
	start := time.Now()
	main, err := decode.DecodeFile(path)
	if err != nil {
		return nil, "", err
	}
	e.log.WithFields(logrus.Fields{
		"function":    "renderTrack",
		"file":        filepath.Base(path),
		"sample_rate": main.SampleRate,
		"frames":      main.Len(),
		"elapsed":     time.Since(start).String(),
	}).Debug("Decoded track")

	out, err := render.Render(main, tag, e.sess.EQ, e.sess.Options, render.WithLogger(e.log))
	if err != nil {
		return nil, "", err
	}
	return out, path, nil
}

func oneInput(f *sessionFlags) (string, error) {
	if f.fs.NArg() != 1 {
		f.fs.Usage()
		return "", fmt.Errorf("%s takes exactly one input, got %d", f.fs.Name(), f.fs.NArg())
	}
	return f.fs.Arg(0), nil
}

func runExport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newCommandFlags("export", false, stderr)
	outDir := f.fs.String("out", ".", "Output directory")
	sess, err := f.parse(args)
	if err != nil {
		return err
	}
	input, err := oneInput(f)
	if err != nil {
		return err
	}
	e := newEnv(f, sess, stderr)
	defer e.close()

	buf, path, err := e.renderTrack(ctx, input)
	if err != nil {
		return err
	}
	out := filepath.Join(*outDir, archive.ExportName(path))
	if err := wavenc.WriteFile(out, buf); err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

func runBulk(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newCommandFlags("bulk", false, stderr)
	outPath := f.fs.String("out", archive.BulkArchiveName, "Output zip file")
	quiet := f.fs.Bool("quiet", false, "Log progress instead of showing the progress screen")
	sess, err := f.parse(args)
	if err != nil {
		return err
	}
	if f.fs.NArg() == 0 {
		f.fs.Usage()
		return errors.New("bulk needs at least one input")
	}
	e := newEnv(f, sess, stderr)
	defer e.close()

	inputs, err := media.ExpandInputs(f.fs.Args())
	if err != nil {
		return err
	}
	tag, err := e.loadTag(ctx)
	if err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		entries  []archive.Entry
		res      batch.Result
		started  = make(chan struct{})
		finished = make(chan struct{})
	)
	export := func(ctx context.Context, progress func(done, total int, name string)) error {
		close(started)
		defer close(finished)

		paths := make([]string, 0, len(inputs))
		for _, in := range inputs {
			p, err := e.local(ctx, in)
			if err != nil {
				e.log.WithFields(logrus.Fields{
					"function": "runBulk",
					"input":    in,
					"error":    err.Error(),
				}).Error("Skipping input that could not be fetched")
				continue
			}
			paths = append(paths, p)
		}
		runner := &batch.Runner{
			Width:  batch.DefaultWidth,
			Logger: e.log,
			OnProgress: func(done, total int, job batch.Job) {
				progress(done, total, job.Name)
			},
		}
		got, r := runner.ExportTracks(ctx, paths, tag, sess.EQ, sess.Options)
		mu.Lock()
		entries, res = got, r
		mu.Unlock()
		if r.Canceled {
			return ctx.Err()
		}
		if len(got) == 0 {
			return errors.New("every track failed to export")
		}
		return nil
	}

	if *quiet || !isTerminal(stdout) {
		err = export(ctx, func(done, total int, name string) {
			e.log.WithFields(logrus.Fields{
				"function": "runBulk",
				"file":     name,
			}).Infof("%d / %d files", done, total)
		})
	} else {
		err = runExportScreen(ctx, e, len(inputs), export)
		// Quitting the screen early leaves the current window draining.
		select {
		case <-started:
			<-finished
		default:
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, job := range res.Jobs {
		if job.State == batch.Failed && !errors.Is(job.Err, context.Canceled) {
			fmt.Fprintf(stderr, "failed: %s: %v\n", job.Name, job.Err)
		}
	}
	if err != nil {
		return err
	}

	if err := archive.WriteFile(*outPath, entries); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s (%d of %d tracks)\n", *outPath, res.Succeeded, len(inputs))
	return nil
}

// runExportScreen shows the export progress screen while run works. Log
// lines are held back until the screen closes.
func runExportScreen(ctx context.Context, e *env, total int, run ui.ExportFunc) error {
	defer holdLogs(e.log)()

	model := ui.NewExport("Exporting tracks", total, run)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	m, ok := final.(ui.ExportModel)
	if !ok {
		return errors.New("unexpected model type from export screen")
	}
	return m.Err()
}

// lockedBuffer holds log output while a full-screen program owns the
// terminal.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// holdLogs redirects log until the returned func writes what was held to
// the previous output.
func holdLogs(log *logrus.Logger) func() {
	held := &lockedBuffer{}
	out := log.Out
	log.SetOutput(held)
	return func() {
		log.SetOutput(out)
		held.mu.Lock()
		defer held.mu.Unlock()
		_, _ = held.buf.WriteTo(out)
	}
}

func runVideo(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newCommandFlags("video", true, stderr)
	outPath := f.fs.String("out", "", "Output video (.mp4 or .webm, default <track>.mp4)")
	fps := f.fs.Int("fps", video.DefaultFPS, "Frames per second")
	quiet := f.fs.Bool("quiet", false, "No progress bar")
	sess, err := f.parse(args)
	if err != nil {
		return err
	}
	input, err := oneInput(f)
	if err != nil {
		return err
	}
	e := newEnv(f, sess, stderr)
	defer e.close()

	buf, path, err := e.renderTrack(ctx, input)
	if err != nil {
		return err
	}
	settings := sess.Video
	f.syncTrack(&settings, path, buf.Duration())

	out := *outPath
	if out == "" {
		base := filepath.Base(path)
		out = strings.TrimSuffix(base, filepath.Ext(base)) + ".mp4"
	}

	cfg := video.CaptureConfig{
		Audio:    buf,
		Settings: settings,
		Assets:   compositor.NewAssetCache(e.log),
		Output:   out,
		FPS:      *fps,
		Seed:     f.seed,
		Logger:   e.log,
	}

	var (
		p   *mpb.Progress
		bar *mpb.Bar
	)
	if !*quiet {
		total := video.FrameCount(video.CaptureDuration(settings.VideoDuration, buf.Duration()), *fps)
		p = mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(stderr))
		bar = p.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name("Rendering: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
		)
		last := time.Now()
		cfg.OnFrame = func(done, total int) {
			now := time.Now()
			bar.EwmaIncrement(now.Sub(last))
			last = now
		}
	}

	err = video.Capture(ctx, cfg)
	if p != nil {
		if err != nil {
			bar.Abort(false)
		}
		p.Wait()
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

func runThumbnail(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newCommandFlags("thumbnail", true, stderr)
	outDir := f.fs.String("out", ".", "Output directory")
	sess, err := f.parse(args)
	if err != nil {
		return err
	}
	if f.fs.NArg() > 1 {
		f.fs.Usage()
		return errors.New("thumbnail takes at most one input")
	}
	e := newEnv(f, sess, stderr)
	defer e.close()

	settings := sess.Video
	if f.fs.NArg() == 1 {
		f.syncTrack(&settings, f.fs.Arg(0), 0)
	} else if f.title != "" {
		_ = settings.SetOverlayText(compositor.OverlayTitle, f.title)
	}

	assets := compositor.NewAssetCache(e.log)
	preloadAssets(assets, settings, e.log)

	out := filepath.Join(*outDir, archive.ThumbnailName(settings.ArtistName))
	if err := video.WriteThumbnailFile(out, settings, assets, e.log); err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

func preloadAssets(assets *compositor.AssetCache, s compositor.VideoSettings, log logrus.FieldLogger) {
	refs := []string{s.ArtworkURL, s.LogoURL}
	if s.BackgroundType == compositor.BackgroundImage {
		refs = append(refs, s.BackgroundURL)
	}
	if err := assets.Preload(refs...); err != nil {
		log.WithFields(logrus.Fields{
			"function": "preloadAssets",
			"error":    err.Error(),
		}).Warn("Some assets failed to load and will be skipped")
	}
}

func runPreview(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newCommandFlags("preview", true, stderr)
	at := f.fs.Float64("t", 2000, "Frame time in milliseconds")
	expanded := f.fs.Bool("expanded", false, "Use the expanded preview surface")
	colorName := f.fs.String("color", "auto", "Color mode: auto, off, 16, 256, true")
	sess, err := f.parse(args)
	if err != nil {
		return err
	}
	if f.fs.NArg() > 1 {
		f.fs.Usage()
		return errors.New("preview takes at most one input")
	}
	mode, err := parseColorMode(*colorName)
	if err != nil {
		return err
	}
	e := newEnv(f, sess, stderr)
	defer e.close()

	cfg := video.PreviewConfig{
		Settings: sess.Video,
		Expanded: *expanded,
		Seed:     f.seed,
		Logger:   e.log,
	}
	if f.fs.NArg() == 1 {
		buf, path, err := e.renderTrack(ctx, f.fs.Arg(0))
		if err != nil {
			return err
		}
		f.syncTrack(&cfg.Settings, path, buf.Duration())
		cfg.Audio = buf
	}
	// The editor shows the grid and layout aids only outside exports.
	cfg.Settings.IsGenerating = false

	assets := compositor.NewAssetCache(e.log)
	preloadAssets(assets, cfg.Settings, e.log)
	cfg.Assets = assets

	pv, err := video.NewPreview(cfg)
	if err != nil {
		return err
	}
	if *colorName != "auto" {
		pv.SetRenderer(video.NewRendererMode(mode))
	}
	cols, rows := terminalSize(stdout)
	fmt.Fprint(stdout, pv.Text(*at, cols, rows-1))
	return nil
}

func parseColorMode(s string) (video.ColorMode, error) {
	switch strings.ToLower(s) {
	case "auto":
		return video.DetectColorMode(), nil
	case "off", "none", "ascii":
		return video.ColorOff, nil
	case "16":
		return video.ColorANSI16, nil
	case "256":
		return video.ColorANSI256, nil
	case "true", "truecolor", "24bit":
		return video.ColorTrue, nil
	}
	return 0, fmt.Errorf("unknown color mode %q", s)
}

func runPlay(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newCommandFlags("play", false, stderr)
	sess, err := f.parse(args)
	if err != nil {
		return err
	}
	input, err := oneInput(f)
	if err != nil {
		return err
	}
	e := newEnv(f, sess, stderr)
	defer e.close()

	pb, err := openPlayback(ctx, e, input)
	if err != nil {
		return err
	}
	defer pb.player.Close()

	defer holdLogs(e.log)()

	program := tea.NewProgram(pb.model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func runConfig(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newCommandFlags("config", true, stderr)
	outPath := f.fs.String("out", "", "Write the session here instead of stdout")
	sess, err := f.parse(args)
	if err != nil {
		return err
	}
	if f.fs.NArg() > 0 {
		f.fs.Usage()
		return errors.New("config takes no inputs")
	}
	if f.title != "" {
		_ = sess.Video.SetOverlayText(compositor.OverlayTitle, f.title)
	}
	if *outPath == "" {
		return config.Encode(stdout, sess)
	}
	return config.Save(*outPath, sess)
}
