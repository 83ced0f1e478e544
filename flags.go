package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/olivier-w/beatboy/internal/audio"
	"github.com/olivier-w/beatboy/internal/compositor"
	"github.com/olivier-w/beatboy/internal/config"
	"github.com/olivier-w/beatboy/internal/media"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// parseEQ reads "low,lowMid,mid,highMid,high" gains in dB.
func parseEQ(s string) (audio.EQSettings, error) {
	parts := strings.Split(s, ",")
	if len(parts) != len(audio.EQBands) {
		return audio.EQSettings{}, fmt.Errorf("eq needs %d comma-separated gains, got %q", len(audio.EQBands), s)
	}
	var g [5]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return audio.EQSettings{}, fmt.Errorf("eq %s gain %q: %w", audio.EQBands[i].Name, p, err)
		}
		g[i] = v
	}
	return audio.EQFromGains(g).Clamp(), nil
}

// parsePoint reads "x,y" in normalized frame coordinates.
func parsePoint(s string) (x, y float64, err error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("point %q: want x,y", s)
	}
	if x, err = strconv.ParseFloat(strings.TrimSpace(xs), 64); err != nil {
		return 0, 0, fmt.Errorf("point %q: %w", s, err)
	}
	if y, err = strconv.ParseFloat(strings.TrimSpace(ys), 64); err != nil {
		return 0, 0, fmt.Errorf("point %q: %w", s, err)
	}
	return x, y, nil
}

// applyMove handles -move. The target is an overlay id or an x,y point
// that picks the nearest overlay the way a click in the editor does.
func applyMove(v *compositor.VideoSettings, arg string) error {
	target, to, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("move %q: want id=x,y", arg)
	}
	id := strings.TrimSpace(target)
	if strings.Contains(id, ",") {
		px, py, err := parsePoint(id)
		if err != nil {
			return err
		}
		hit, found := v.HitTest(px, py)
		if !found {
			return fmt.Errorf("move %q: no visible overlay near %s", arg, id)
		}
		id = hit
	}
	x, y, err := parsePoint(to)
	if err != nil {
		return err
	}
	return v.MoveOverlay(id, x, y)
}

// sessionFlags binds the flags shared by every command. Values are
// applied over the config file only when set on the command line.
type sessionFlags struct {
	fs *flag.FlagSet

	configPath string
	logLevel   string
	tag        string
	eq         string
	normalize  bool
	fade       bool
	limiter    bool
	interval   int
	rate       int

	video      bool
	visualizer string
	grade      string
	aspect     string
	art        string
	bg         string
	logo       string
	logoScale  float64
	logoPos    string
	font       string
	blur       bool
	grid       bool
	snap       bool
	artist     string
	title      string
	duration   float64
	seed       int64
	moves      listFlag
	texts      listFlag
	show       listFlag
	hide       listFlag
}

func newSessionFlags(name string, video bool) *sessionFlags {
	f := &sessionFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError), video: video}
	fs := f.fs
	fs.StringVar(&f.configPath, "config", "", "YAML session file")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.tag, "tag", "", "Producer tag mixed in every -interval seconds")
	fs.StringVar(&f.eq, "eq", "", "EQ gains in dB: low,lowMid,mid,highMid,high")
	fs.BoolVar(&f.normalize, "normalize", false, "Peak-normalize to -1 dBFS")
	fs.BoolVar(&f.fade, "fade", false, "Fade out over the last 3 seconds")
	fs.BoolVar(&f.limiter, "limiter", false, "Enable the brick-wall limiter")
	fs.IntVar(&f.interval, "interval", 30, "Tag interval in seconds (15, 20 or 30)")
	fs.IntVar(&f.rate, "rate", 44100, "Output sample rate (44100 or 48000)")
	if !video {
		return f
	}
	fs.StringVar(&f.visualizer, "visualizer", "", "Visualizer: "+joinKinds(compositor.Visualizers()))
	fs.StringVar(&f.grade, "grade", "", "Color grade: "+joinKinds(compositor.Grades()))
	fs.StringVar(&f.aspect, "aspect", "", "Aspect ratio (16:9 or 9:16)")
	fs.StringVar(&f.art, "art", "", "Center artwork image (path or URL)")
	fs.StringVar(&f.bg, "bg", "", "Background image or looping video (path or URL)")
	fs.StringVar(&f.logo, "logo", "", "Logo image (path or URL)")
	fs.Float64Var(&f.logoScale, "logo-scale", 1, "Logo scale (0.5 to 3)")
	fs.StringVar(&f.logoPos, "logo-pos", "", "Logo position as x,y")
	fs.StringVar(&f.font, "font", "", "TrueType font file for overlays")
	fs.BoolVar(&f.blur, "blur", false, "Motion blur trails")
	fs.BoolVar(&f.grid, "grid", false, "Show the editor grid (never in exports)")
	fs.BoolVar(&f.snap, "snap", false, "Snap moved overlays to the grid")
	fs.StringVar(&f.artist, "artist", "", "Artist name (producer overlay and thumbnail name)")
	fs.StringVar(&f.title, "title", "", "Title overlay text (default: track name)")
	fs.Float64Var(&f.duration, "duration", 0, "Video length in seconds (0 = whole track)")
	fs.Int64Var(&f.seed, "seed", 1, "Seed for particles, rain and glitches")
	fs.Var(&f.moves, "move", "Move an overlay: id=x,y or x0,y0=x,y (repeatable)")
	fs.Var(&f.texts, "text", "Set overlay text: id=TEXT (repeatable)")
	fs.Var(&f.show, "show", "Show an overlay by id (repeatable)")
	fs.Var(&f.hide, "hide", "Hide an overlay by id (repeatable)")
	return f
}

func joinKinds[T ~string](kinds []T) string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return strings.Join(out, ", ")
}

// parse reads args, loads the config file and applies explicit flags.
func (f *sessionFlags) parse(args []string) (config.Session, error) {
	if err := f.fs.Parse(args); err != nil {
		return config.Session{}, err
	}
	sess, err := config.Load(f.configPath)
	if err != nil {
		return config.Session{}, err
	}
	if err := f.apply(&sess); err != nil {
		return config.Session{}, err
	}
	if err := sess.Normalize(); err != nil {
		return config.Session{}, err
	}
	return sess, nil
}

func (f *sessionFlags) apply(sess *config.Session) error {
	set := map[string]bool{}
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["log-level"] {
		sess.LogLevel = f.logLevel
	}
	if set["eq"] {
		eq, err := parseEQ(f.eq)
		if err != nil {
			return err
		}
		sess.EQ = eq
	}
	if set["normalize"] {
		sess.Options.Normalize = f.normalize
	}
	if set["fade"] {
		sess.Options.FadeEnding = f.fade
	}
	if set["limiter"] {
		sess.Options.LimiterEnabled = f.limiter
	}
	if set["interval"] {
		sess.Options.TagIntervalSeconds = f.interval
	}
	if set["rate"] {
		sess.Options.TargetSampleRate = f.rate
	}
	if err := sess.Options.Validate(); err != nil {
		return err
	}
	if !f.video {
		return nil
	}

	v := &sess.Video
	if set["visualizer"] {
		v.Visualizer = compositor.VisualizerKind(f.visualizer)
	}
	if set["grade"] {
		v.ColorGrade = compositor.GradeKind(f.grade)
	}
	if set["aspect"] {
		v.AspectRatio = compositor.AspectRatio(f.aspect)
	}
	if set["art"] {
		v.ArtworkURL = f.art
	}
	if set["bg"] {
		v.BackgroundURL = f.bg
		v.BackgroundType = compositor.BackgroundImage
		if media.IsVideoRef(f.bg) {
			v.BackgroundType = compositor.BackgroundVideo
		}
	}
	if set["logo"] {
		v.LogoURL = f.logo
	}
	if set["logo-scale"] {
		v.LogoScale = f.logoScale
	}
	if set["logo-pos"] {
		x, y, err := parsePoint(f.logoPos)
		if err != nil {
			return err
		}
		v.LogoX, v.LogoY = x, y
	}
	if set["font"] {
		v.FontPath = f.font
	}
	if set["blur"] {
		v.MotionBlur = f.blur
	}
	if set["grid"] {
		v.ShowGrid = f.grid
	}
	if set["snap"] {
		v.SnapToGrid = f.snap
	}
	if set["duration"] {
		v.VideoDuration = f.duration
	}
	if set["artist"] {
		v.ArtistName = f.artist
	}
	for _, id := range f.show {
		if err := setVisible(v, id, true); err != nil {
			return err
		}
	}
	for _, id := range f.hide {
		if err := setVisible(v, id, false); err != nil {
			return err
		}
	}
	for _, t := range f.texts {
		id, text, ok := strings.Cut(t, "=")
		if !ok {
			return fmt.Errorf("text %q: want id=TEXT", t)
		}
		if err := v.SetOverlayText(id, text); err != nil {
			return err
		}
	}
	for _, m := range f.moves {
		if err := applyMove(v, m); err != nil {
			return err
		}
	}
	return nil
}

func setVisible(v *compositor.VideoSettings, id string, on bool) error {
	o := v.Overlay(id)
	if o == nil {
		return fmt.Errorf("unknown overlay %q", id)
	}
	o.Visible = on
	return nil
}

// syncTrack applies a loaded track to the video settings. An explicit
// -title or -duration wins over the values taken from the track.
func (f *sessionFlags) syncTrack(v *compositor.VideoSettings, name string, seconds float64) {
	configured := v.VideoDuration
	v.SyncTitle(name, seconds)
	if f.title != "" {
		_ = v.SetOverlayText(compositor.OverlayTitle, f.title)
	}
	if configured > 0 {
		v.VideoDuration = configured
	}
}
