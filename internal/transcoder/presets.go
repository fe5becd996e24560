package transcoder

import "sort"

// DefaultPreset is used for empty or unknown tier names.
const DefaultPreset = "medium"

// QualityPreset maps a named tier to fixed video and audio bitrates.
type QualityPreset struct {
	Name         string `json:"name"`
	VideoBitrate string `json:"videoBitrate"`
	AudioBitrate string `json:"audioBitrate"`
}

var qualityPresets = map[string]QualityPreset{
	"low":    {Name: "low", VideoBitrate: "500k", AudioBitrate: "64k"},
	"medium": {Name: "medium", VideoBitrate: "1000k", AudioBitrate: "128k"},
	"high":   {Name: "high", VideoBitrate: "2500k", AudioBitrate: "192k"},
}

// LookupPreset returns the preset for name, falling back to medium for any
// name that is not a known tier. It never fails.
func LookupPreset(name string) QualityPreset {
	if p, ok := qualityPresets[name]; ok {
		return p
	}
	return qualityPresets[DefaultPreset]
}

// PresetNames returns the known tier names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(qualityPresets))
	for name := range qualityPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
