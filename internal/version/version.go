package version

import (
	"encoding/json"
	"os"
)

const fallback = "0.1.0"

type Info struct {
	Version string `json:"version"`
}

// Load reads version.json from the working directory. A missing or
// malformed file falls back to a baked-in version so startup never
// fails on a packaging mistake.
func Load() Info {
	data, err := os.ReadFile("version.json")
	if err != nil {
		return Info{Version: fallback}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil || info.Version == "" {
		return Info{Version: fallback}
	}
	return info
}
