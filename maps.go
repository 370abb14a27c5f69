package main

// MapConfig holds the static per-map arena parameters
type MapConfig struct {
	StartRadius float64
}

const (
	DefaultMap      = "neon_void"
	DefaultDuration = 60   // seconds
	MaxDuration     = 3600 // seconds
)

// MapConfigs is the fixed map table; immutable at runtime
var MapConfigs = map[string]MapConfig{
	"neon_void":        {StartRadius: 800},
	"lava_pit":         {StartRadius: 700},
	"deep_ocean":       {StartRadius: 900},
	"enchanted_forest": {StartRadius: 750},
	"galactic_core":    {StartRadius: 1100},
}

// mapConfigFor returns the config for a map type, falling back to the default
func mapConfigFor(mapType string) MapConfig {
	if cfg, ok := MapConfigs[mapType]; ok {
		return cfg
	}
	return MapConfigs[DefaultMap]
}

// normalizeSettings replaces unknown maps and unusable durations with defaults
func normalizeSettings(s Settings) Settings {
	if _, ok := MapConfigs[s.MapType]; !ok {
		s.MapType = DefaultMap
	}
	if s.Duration <= 0 || s.Duration > MaxDuration {
		s.Duration = DefaultDuration
	}
	return s
}
