// Package gcode scrapes print metadata out of slicer-generated G-code
// comments. Orca Slicer, PrusaSlicer and Cura each write their own comment
// dialect, so every field is tried against several patterns and missing
// fields simply stay zero.
package gcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Metadata is what the slicer recorded about a job.
type Metadata struct {
	Filename           string  `json:"filename"`
	EstimatedSeconds   int     `json:"estimated_time_seconds"`
	EstimatedFormatted string  `json:"estimated_time_formatted"`
	FilamentUsedMM     float64 `json:"filament_used_mm"`
	FilamentUsedGrams  float64 `json:"filament_used_grams"`
	LayerHeight        float64 `json:"layer_height"`
	TotalLayers        int     `json:"total_layers"`
	NozzleTemp         float64 `json:"nozzle_temp"`
	BedTemp            float64 `json:"bed_temp"`
}

// Comment patterns per field, tried in order; first match wins.
var patterns = map[string][]*regexp.Regexp{
	"estimated_time": {
		regexp.MustCompile(`(?i);\s*estimated printing time.*?=\s*(.+)`),
		regexp.MustCompile(`(?i);\s*TIME:\s*(\d+)`),
		regexp.MustCompile(`(?i);\s*PRINT_TIME:\s*(\d+)`),
		regexp.MustCompile(`(?i);\s*total estimated time:\s*(.+)`),
	},
	"filament_mm": {
		regexp.MustCompile(`(?i);\s*filament used \[mm\]\s*=\s*([\d.]+)`),
		regexp.MustCompile(`(?i);\s*FILAMENT_USED:\s*([\d.]+)`),
	},
	"filament_grams": {
		regexp.MustCompile(`(?i);\s*filament used \[g\]\s*=\s*([\d.]+)`),
		regexp.MustCompile(`(?i);\s*total filament used \[g\]\s*=\s*([\d.]+)`),
	},
	"layer_height": {
		regexp.MustCompile(`(?i);\s*layer_height\s*=\s*([\d.]+)`),
		regexp.MustCompile(`(?i);\s*LAYER_HEIGHT:\s*([\d.]+)`),
	},
	"total_layers": {
		regexp.MustCompile(`(?i);\s*total layers count\s*=\s*(\d+)`),
		regexp.MustCompile(`(?i);\s*LAYER_COUNT:\s*(\d+)`),
	},
	"nozzle_temp": {
		regexp.MustCompile(`(?i);\s*nozzle_temperature\s*=\s*(\d+)`),
		regexp.MustCompile(`(?i);\s*temperature\s*=\s*(\d+)`),
	},
	"bed_temp": {
		regexp.MustCompile(`(?i);\s*bed_temperature\s*=\s*(\d+)`),
		regexp.MustCompile(`(?i);\s*first_layer_bed_temperature\s*=\s*(\d+)`),
	},
}

// Parse extracts metadata from G-code content.
func Parse(filename string, content []byte) Metadata {
	text := string(content)
	m := Metadata{Filename: filename, EstimatedFormatted: "00:00:00"}

	if s := firstMatch(text, patterns["estimated_time"]); s != "" {
		m.EstimatedSeconds = ParseDuration(s)
		m.EstimatedFormatted = FormatDuration(m.EstimatedSeconds)
	}
	if s := firstMatch(text, patterns["filament_mm"]); s != "" {
		m.FilamentUsedMM, _ = strconv.ParseFloat(s, 64)
	}
	if s := firstMatch(text, patterns["filament_grams"]); s != "" {
		m.FilamentUsedGrams, _ = strconv.ParseFloat(s, 64)
	}
	if s := firstMatch(text, patterns["layer_height"]); s != "" {
		m.LayerHeight, _ = strconv.ParseFloat(s, 64)
	}
	if s := firstMatch(text, patterns["total_layers"]); s != "" {
		m.TotalLayers, _ = strconv.Atoi(s)
	}
	if s := firstMatch(text, patterns["nozzle_temp"]); s != "" {
		m.NozzleTemp, _ = strconv.ParseFloat(s, 64)
	}
	if s := firstMatch(text, patterns["bed_temp"]); s != "" {
		m.BedTemp, _ = strconv.ParseFloat(s, 64)
	}
	return m
}

func firstMatch(text string, res []*regexp.Regexp) string {
	for _, re := range res {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

var (
	unitRe = []struct {
		re   *regexp.Regexp
		mult int
	}{
		{regexp.MustCompile(`(\d+)\s*d`), 86400},
		{regexp.MustCompile(`(\d+)\s*h`), 3600},
		{regexp.MustCompile(`(\d+)\s*m(?:in)?`), 60},
		{regexp.MustCompile(`(\d+)\s*s(?:ec)?`), 1},
	}
	clockRe = regexp.MustCompile(`^(\d+):(\d+):(\d+)`)
)

// ParseDuration converts a slicer time string to seconds. Accepted forms:
// plain seconds ("5400"), unit notation ("1h 30m 45s", "2d 4h"), and
// clock notation ("01:30:00").
func ParseDuration(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))

	if n, err := strconv.Atoi(s); err == nil {
		return n
	}

	total := 0
	for _, u := range unitRe {
		if m := u.re.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			total += n * u.mult
		}
	}
	if total > 0 {
		return total
	}

	if m := clockRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		sec, _ := strconv.Atoi(m[3])
		return h*3600 + min*60 + sec
	}
	return 0
}

// FormatDuration renders seconds as HH:MM:SS.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
