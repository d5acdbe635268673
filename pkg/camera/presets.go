package camera

// Preset is a named capture setup selectable from the dashboard.
type Preset struct {
	Name  string
	Apply func(*Config)
}

// Preset names.
const (
	PresetDefault = "default"
	PresetLow     = "low"
	Preset720p    = "720p"
	PresetDirect  = "direct"
)

// presets never touch Device; they describe capture settings only.
var presets = []Preset{
	{PresetDefault, func(c *Config) {
		d := DefaultConfig()
		c.Width, c.Height, c.Framerate, c.Quality, c.Mirror = d.Width, d.Height, d.Framerate, d.Quality, d.Mirror
	}},
	// Segmentation latency drops roughly with pixel count.
	{PresetLow, func(c *Config) {
		c.Width, c.Height = 320, 240
	}},
	{Preset720p, func(c *Config) {
		c.Width, c.Height = 1280, 720
	}},
	// Screen facing away from the camera.
	{PresetDirect, func(c *Config) {
		c.Mirror = false
	}},
}

// PresetNames lists the presets in display order.
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// ApplyPreset returns base with the named preset applied and whether the
// name was known.
func ApplyPreset(base Config, name string) (Config, bool) {
	for _, p := range presets {
		if p.Name == name {
			p.Apply(&base)
			return base, true
		}
	}
	return base, false
}
