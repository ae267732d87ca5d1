// Package config defines the ntag configuration and its loading hooks.
//
// All times are in ns and all lengths in cm.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// MetricsAddr serves /metrics when non-empty, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// Input and Output are JSON-lines paths; "-" means stdin/stdout.
	Input  string `koanf:"input"`
	Output string `koanf:"output"`

	// FeatureDump, when set, receives one JSON line of candidate feature
	// rows per event.
	FeatureDump string `koanf:"feature_dump"`

	// GeometryFile is a channel,x,y,z CSV. Empty uses the synthetic barrel.
	GeometryFile string `koanf:"geometry_file"`

	// DemoEvents replaces Input with this many simulated events when positive.
	DemoEvents int    `koanf:"demo_events"`
	DemoSeed   uint64 `koanf:"demo_seed"`

	// WorkerCount sets the number of event workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory event queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the duplicate-event guard.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxResults bounds the in-memory result store. Zero keeps every result.
	MaxResults int `koanf:"max_results"`

	Search SearchConfig `koanf:"search"`
	Early  EarlyConfig  `koanf:"early"`

	// MatchWindow is the candidate-taggable matching window.
	MatchWindow float64 `koanf:"match_window"`

	// PruneWindow removes delayed candidates this close to an early
	// electron. Zero means twice MatchWindow.
	PruneWindow float64 `koanf:"prune_window"`

	// Deadtime is the global hit deadtime applied before the search.
	Deadtime float64 `koanf:"deadtime"`

	Separation SeparationConfig `koanf:"separation"`

	// ScoreCut is the neutron score threshold without separation.
	ScoreCut float64 `koanf:"score_cut"`

	Vertex     VertexConfig     `koanf:"vertex"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Noise      NoiseConfig      `koanf:"noise"`
}

// SearchConfig holds the gates of one search pass.
type SearchConfig struct {
	T0Min      float64 `koanf:"t0_min"`
	T0Max      float64 `koanf:"t0_max"`
	TWidth     float64 `koanf:"twidth"`
	MinPeakSep float64 `koanf:"min_peak_sep"`
	NHitsMin   int     `koanf:"nhits_min"`
	NHitsMax   int     `koanf:"nhits_max"`
	N200Max    int     `koanf:"n200_max"`
}

// EarlyConfig enables the low-threshold search for events that carry no
// externally reconstructed early pulses.
type EarlyConfig struct {
	Enabled      bool `koanf:"enabled"`
	SearchConfig `koanf:",squash"`
}

// SeparationConfig enables cut-based electron/neutron separation. Nil cuts
// are absent, which is an error when Enabled is set.
type SeparationConfig struct {
	Enabled  bool     `koanf:"enabled"`
	N50Cut   *float64 `koanf:"n50_cut"`
	TimeCut  *float64 `koanf:"time_cut"`
	ScoreCut *float64 `koanf:"score_cut"`
}

// VertexConfig parameterises the vertex grid search.
type VertexConfig struct {
	InitGridWidth float64 `koanf:"init_grid_width"`
	MinGridWidth  float64 `koanf:"min_grid_width"`
	ShrinkRate    float64 `koanf:"shrink_rate"`
	SearchRange   float64 `koanf:"search_range"`
}

// ClassifierConfig overrides the built-in classifier model when Weights is
// non-empty.
type ClassifierConfig struct {
	Bias    float64            `koanf:"bias"`
	Weights map[string]float64 `koanf:"weights"`
	Means   map[string]float64 `koanf:"means"`
	Scales  map[string]float64 `koanf:"scales"`
}

// NoiseConfig enables overlay of recorded noise hits onto each event.
type NoiseConfig struct {
	Enabled     bool    `koanf:"enabled"`
	File        string  `koanf:"file"`
	WindowStart float64 `koanf:"window_start"`
	WindowEnd   float64 `koanf:"window_end"`
	Deadtime    float64 `koanf:"deadtime"`
	MinDensity  float64 `koanf:"min_density"`
	MaxDensity  float64 `koanf:"max_density"`
	Repeat      bool    `koanf:"repeat"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Input:       "-",
		Output:      "-",
		WorkerCount: runtime.NumCPU(),
		QueueSize:   10_000,
		DedupeSize:  500_000,
		DemoSeed:    1,
		Search: SearchConfig{
			T0Min:      18_000,
			T0Max:      535_000,
			TWidth:     14,
			MinPeakSep: 14,
			NHitsMin:   7,
			NHitsMax:   400,
			N200Max:    200,
		},
		Early: EarlyConfig{
			Enabled: true,
			SearchConfig: SearchConfig{
				T0Min:      1_000,
				T0Max:      18_000,
				TWidth:     50,
				MinPeakSep: 500,
				NHitsMin:   20,
				NHitsMax:   5_000,
				N200Max:    5_000,
			},
		},
		MatchWindow: 200,
		ScoreCut:    0.7,
		Vertex: VertexConfig{
			InitGridWidth: 800,
			MinGridWidth:  50,
			ShrinkRate:    0.5,
			SearchRange:   5000,
		},
		Noise: NoiseConfig{
			WindowStart: 18_000,
			WindowEnd:   535_000,
			MinDensity:  0,
			MaxDensity:  1e9,
			Repeat:      true,
		},
	}
}

// EffectivePruneWindow returns PruneWindow or its default.
func (c *Config) EffectivePruneWindow() float64 {
	if c.PruneWindow > 0 {
		return c.PruneWindow
	}
	return 2 * c.MatchWindow
}

// SeparationScoreCut returns the neutron score cut of the active mode.
func (c *Config) SeparationScoreCut() float64 {
	if c.Separation.Enabled && c.Separation.ScoreCut != nil {
		return *c.Separation.ScoreCut
	}
	return c.ScoreCut
}
