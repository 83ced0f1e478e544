package audio

// MaxEQGainDB bounds every EQ band gain.
const MaxEQGainDB = 12.0

// FilterKind names a biquad response shape.
type FilterKind int

const (
	LowShelf FilterKind = iota
	Peaking
	HighShelf
)

func (k FilterKind) String() string {
	switch k {
	case LowShelf:
		return "lowshelf"
	case Peaking:
		return "peaking"
	case HighShelf:
		return "highshelf"
	}
	return "unknown"
}

// Band is one fixed EQ band.
type Band struct {
	Name      string
	Kind      FilterKind
	Frequency float64
}

// EQBands lists the five bands in signal-chain order.
var EQBands = [5]Band{
	{Name: "low", Kind: LowShelf, Frequency: 60},
	{Name: "lowMid", Kind: Peaking, Frequency: 250},
	{Name: "mid", Kind: Peaking, Frequency: 1000},
	{Name: "highMid", Kind: Peaking, Frequency: 5000},
	{Name: "high", Kind: HighShelf, Frequency: 12000},
}

// EQSettings holds one gain in dB per band.
type EQSettings struct {
	Low     float64 `yaml:"low"`
	LowMid  float64 `yaml:"low_mid"`
	Mid     float64 `yaml:"mid"`
	HighMid float64 `yaml:"high_mid"`
	High    float64 `yaml:"high"`
}

// Gains returns the band gains in EQBands order.
func (e EQSettings) Gains() [5]float64 {
	return [5]float64{e.Low, e.LowMid, e.Mid, e.HighMid, e.High}
}

// Clamp limits every gain to ±MaxEQGainDB.
func (e EQSettings) Clamp() EQSettings {
	return EQSettings{
		Low:     clampGain(e.Low),
		LowMid:  clampGain(e.LowMid),
		Mid:     clampGain(e.Mid),
		HighMid: clampGain(e.HighMid),
		High:    clampGain(e.High),
	}
}

// Flat reports whether every band is at 0 dB.
func (e EQSettings) Flat() bool {
	return e == EQSettings{}
}

// EQFromGains builds settings from gains in EQBands order.
func EQFromGains(g [5]float64) EQSettings {
	return EQSettings{Low: g[0], LowMid: g[1], Mid: g[2], HighMid: g[3], High: g[4]}
}

func clampGain(v float64) float64 {
	if v > MaxEQGainDB {
		return MaxEQGainDB
	}
	if v < -MaxEQGainDB {
		return -MaxEQGainDB
	}
	return v
}
