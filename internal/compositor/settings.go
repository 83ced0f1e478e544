package compositor

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// VisualizerKind selects the reactive layer drawn behind the artwork.
type VisualizerKind string

const (
	VisualizerWaveform     VisualizerKind = "waveform"
	VisualizerTrapNation   VisualizerKind = "trap-nation"
	VisualizerParticles    VisualizerKind = "particles"
	VisualizerBars         VisualizerKind = "bars"
	VisualizerDualBars     VisualizerKind = "dual-bars"
	VisualizerOscilloscope VisualizerKind = "oscilloscope"
	VisualizerEclipse      VisualizerKind = "eclipse"
	VisualizerMatrix       VisualizerKind = "matrix"
)

// Visualizers lists every visualizer in menu order.
func Visualizers() []VisualizerKind {
	return []VisualizerKind{
		VisualizerWaveform,
		VisualizerTrapNation,
		VisualizerParticles,
		VisualizerBars,
		VisualizerDualBars,
		VisualizerOscilloscope,
		VisualizerEclipse,
		VisualizerMatrix,
	}
}

// GradeKind names a colour-grade preset.
type GradeKind string

const (
	GradeNone         GradeKind = "none"
	GradeNoir         GradeKind = "noir"
	GradeSepia        GradeKind = "sepia"
	GradeBW           GradeKind = "bw"
	GradeHighContrast GradeKind = "high-contrast"
	GradeCyberpunk    GradeKind = "cyberpunk"
	GradeDreamy       GradeKind = "dreamy"
	GradeVHS          GradeKind = "vhs"
	GradeGlitch       GradeKind = "glitch"
	Grade1980s        GradeKind = "1980s"
)

// Grades lists every grade preset in menu order.
func Grades() []GradeKind {
	return []GradeKind{
		GradeNone, GradeNoir, GradeSepia, GradeBW, GradeHighContrast,
		GradeCyberpunk, GradeDreamy, GradeVHS, GradeGlitch, Grade1980s,
	}
}

// AspectRatio is the output frame shape.
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

// BackgroundType picks between a still image and a looping video.
type BackgroundType string

const (
	BackgroundImage BackgroundType = "image"
	BackgroundVideo BackgroundType = "video"
)

// Overlay is a text element positioned in normalized frame coordinates.
type Overlay struct {
	ID       string  `yaml:"id"`
	Label    string  `yaml:"label"`
	Text     string  `yaml:"text"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Visible  bool    `yaml:"visible"`
	FontSize float64 `yaml:"font_size"`
	Color    string  `yaml:"color"`
}

// Overlay ids with special handling.
const (
	OverlayProducer = "producer"
	OverlayTitle    = "title"
	OverlayPrice    = "price"
)

// VideoSettings drives every compositor stage. Asset fields hold
// AssetCache references (file paths).
type VideoSettings struct {
	AspectRatio    AspectRatio    `yaml:"aspect_ratio"`
	IsGenerating   bool           `yaml:"-"`
	ArtistName     string         `yaml:"artist_name"`
	VideoDuration  float64        `yaml:"video_duration"`
	BackgroundType BackgroundType `yaml:"background_type"`
	BackgroundURL  string         `yaml:"background"`
	ArtworkURL     string         `yaml:"artwork"`
	LogoURL        string         `yaml:"logo"`
	LogoScale      float64        `yaml:"logo_scale"`
	LogoX          float64        `yaml:"logo_x"`
	LogoY          float64        `yaml:"logo_y"`
	FontFamily     string         `yaml:"font_family"`
	FontPath       string         `yaml:"font_path"`
	Visualizer     VisualizerKind `yaml:"visualizer"`
	MotionBlur     bool           `yaml:"motion_blur"`
	ColorGrade     GradeKind      `yaml:"color_grade"`
	ShowGrid       bool           `yaml:"show_grid"`
	SnapToGrid     bool           `yaml:"snap_to_grid"`
	Overlays       []Overlay      `yaml:"overlays"`
}

// DefaultVideoSettings returns the editor's initial state.
func DefaultVideoSettings() VideoSettings {
	return VideoSettings{
		AspectRatio:    AspectLandscape,
		ArtistName:     "BEATBOY",
		BackgroundType: BackgroundImage,
		LogoScale:      1,
		LogoX:          0.05,
		LogoY:          0.05,
		FontFamily:     "sans-serif",
		Visualizer:     VisualizerWaveform,
		ColorGrade:     GradeNone,
		Overlays:       DefaultOverlays(),
	}
}

// DefaultOverlays returns the producer, title and price overlays.
func DefaultOverlays() []Overlay {
	return []Overlay{
		{ID: OverlayProducer, Label: "Producer Name", Text: "PRODUCED BY BEATBOY", X: 0.5, Y: 0.85, Visible: true, FontSize: 60, Color: "#ffffff"},
		{ID: OverlayTitle, Label: "Track Title", Text: "TRACK TITLE", X: 0.5, Y: 0.15, Visible: true, FontSize: 80, Color: "#ffffff"},
		{ID: OverlayPrice, Label: "Price Tag", Text: "$20 LEASE / $100 EXCLUSIVE", X: 0.9, Y: 0.9, Visible: false, FontSize: 30, Color: "#ffffff"},
	}
}

// Validate reports unknown enum values.
func (s VideoSettings) Validate() error {
	if s.AspectRatio != AspectLandscape && s.AspectRatio != AspectPortrait {
		return fmt.Errorf("unknown aspect ratio %q", s.AspectRatio)
	}
	if s.BackgroundType != BackgroundImage && s.BackgroundType != BackgroundVideo {
		return fmt.Errorf("unknown background type %q", s.BackgroundType)
	}
	if !knownVisualizer(s.Visualizer) {
		return fmt.Errorf("unknown visualizer %q", s.Visualizer)
	}
	if !knownGrade(s.ColorGrade) {
		return fmt.Errorf("unknown color grade %q", s.ColorGrade)
	}
	return nil
}

func knownVisualizer(v VisualizerKind) bool {
	for _, k := range Visualizers() {
		if k == v {
			return true
		}
	}
	return false
}

func knownGrade(g GradeKind) bool {
	for _, k := range Grades() {
		if k == g {
			return true
		}
	}
	return false
}

// Dimensions returns the export frame size.
func (s VideoSettings) Dimensions() (width, height int) {
	if s.AspectRatio == AspectPortrait {
		return 1080, 1920
	}
	return 1920, 1080
}

// PreviewDimensions returns the editor preview surface size.
func (s VideoSettings) PreviewDimensions(expanded bool) (width, height int) {
	width, height = 640, 360
	if s.AspectRatio == AspectPortrait {
		width, height = 360, 640
	}
	if expanded {
		width *= 2
		height *= 2
	}
	return width, height
}

// Overlay returns a pointer to the overlay with id, or nil.
func (s *VideoSettings) Overlay(id string) *Overlay {
	for i := range s.Overlays {
		if s.Overlays[i].ID == id {
			return &s.Overlays[i]
		}
	}
	return nil
}

// SyncTitle applies a newly loaded track: the title overlay takes the
// upper-cased file name without extension and the video runs for the
// whole track.
func (s *VideoSettings) SyncTitle(fileName string, duration float64) {
	base := filepath.Base(fileName)
	title := strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
	s.VideoDuration = duration
	if o := s.Overlay(OverlayTitle); o != nil {
		o.Text = title
	}
}

// SetOverlayText replaces an overlay's text. Editing the producer
// overlay also renames the artist.
func (s *VideoSettings) SetOverlayText(id, text string) error {
	o := s.Overlay(id)
	if o == nil {
		return fmt.Errorf("unknown overlay %q", id)
	}
	if id == OverlayProducer {
		s.ArtistName = text
	}
	o.Text = text
	return nil
}

const (
	hitRadius = 0.15
	gridStep  = 0.1
	snapRange = 0.05
	minPos    = 0.05
	maxPos    = 0.95
)

// HitTest returns the id of the nearest visible overlay within reach of
// the normalized point (x, y).
func (s VideoSettings) HitTest(x, y float64) (string, bool) {
	best := ""
	bestDist := math.Inf(1)
	for _, o := range s.Overlays {
		if !o.Visible {
			continue
		}
		d := math.Hypot(o.X-x, o.Y-y)
		if d < hitRadius && d < bestDist {
			best, bestDist = o.ID, d
		}
	}
	return best, best != ""
}

// MoveOverlay places overlay id at (x, y), clamped away from the frame
// edges and snapped to the 10% grid when SnapToGrid is set.
func (s *VideoSettings) MoveOverlay(id string, x, y float64) error {
	o := s.Overlay(id)
	if o == nil {
		return fmt.Errorf("unknown overlay %q", id)
	}
	x = clamp(x, minPos, maxPos)
	y = clamp(y, minPos, maxPos)
	if s.SnapToGrid {
		x = snap(x)
		y = snap(y)
	}
	o.X, o.Y = x, y
	return nil
}

func snap(v float64) float64 {
	g := math.Round(v/gridStep) * gridStep
	if math.Abs(v-g) < snapRange {
		return g
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
