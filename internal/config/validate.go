package config

import (
	"fmt"
	"strings"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate rejects configurations that cannot run. It is called by Load and
// must pass before any event is processed.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return invalid("log_format %q", c.LogFormat)
	}
	if c.WorkerCount < 1 {
		return invalid("worker_count must be positive")
	}
	if c.QueueSize < 1 {
		return invalid("queue_size must be positive")
	}
	if err := c.Search.validate("search"); err != nil {
		return err
	}
	if c.Early.Enabled {
		if err := c.Early.validate("early"); err != nil {
			return err
		}
	}
	if c.DemoEvents < 0 || c.MaxResults < 0 {
		return invalid("demo_events and max_results must not be negative")
	}
	if c.MatchWindow <= 0 {
		return invalid("match_window must be positive")
	}
	if c.PruneWindow < 0 {
		return invalid("prune_window must not be negative")
	}
	if c.Deadtime < 0 {
		return invalid("deadtime must not be negative")
	}
	if c.Separation.Enabled {
		var missing []string
		if c.Separation.N50Cut == nil {
			missing = append(missing, "n50_cut")
		}
		if c.Separation.TimeCut == nil {
			missing = append(missing, "time_cut")
		}
		if c.Separation.ScoreCut == nil {
			missing = append(missing, "score_cut")
		}
		if len(missing) > 0 {
			return invalid("separation enabled without %s", strings.Join(missing, ", "))
		}
	}
	v := c.Vertex
	if v.MinGridWidth <= 0 || v.InitGridWidth < v.MinGridWidth {
		return invalid("vertex grid widths must satisfy 0 < min_grid_width <= init_grid_width")
	}
	if v.ShrinkRate <= 0 || v.ShrinkRate >= 1 {
		return invalid("vertex shrink_rate must be in (0, 1)")
	}
	if v.SearchRange <= 0 {
		return invalid("vertex search_range must be positive")
	}
	if c.Noise.Enabled {
		n := c.Noise
		if n.File == "" {
			return invalid("noise enabled without file")
		}
		if n.WindowEnd <= n.WindowStart {
			return invalid("noise window_end must be after window_start")
		}
		if n.MaxDensity < n.MinDensity {
			return invalid("noise max_density below min_density")
		}
	}
	return nil
}

func (s SearchConfig) validate(name string) error {
	switch {
	case s.TWidth <= 0:
		return invalid("%s.twidth must be positive", name)
	case s.T0Max < s.T0Min:
		return invalid("%s.t0_max below t0_min", name)
	case s.NHitsMin < 1 || s.NHitsMax < s.NHitsMin:
		return invalid("%s nhits range is empty", name)
	case s.MinPeakSep < 0:
		return invalid("%s.min_peak_sep must not be negative", name)
	}
	return nil
}
