package printer

import (
	"math"
	"strconv"
	"strings"
)

// Telemetry parsing for the free-text responses the firmware returns. The
// formats are not formally specified and vary between firmware revisions, so
// every extractor is best-effort: a fragment that fails to parse reports
// failure and the caller keeps the previous value.

// tempFields holds the result of parsing an M105 response. A heater's values
// are only meaningful when its ok flag is set.
type tempFields struct {
	nozzleCur, nozzleTgt float64
	bedCur, bedTgt       float64
	nozzleOK, bedOK      bool
}

// parseTemperatures extracts "T0:<cur>/<tgt>" and "B:<cur>/<tgt>" fields.
func parseTemperatures(resp string) tempFields {
	var tf tempFields
	tf.nozzleCur, tf.nozzleTgt, tf.nozzleOK = parseHeater(resp, "T0:")
	tf.bedCur, tf.bedTgt, tf.bedOK = parseHeater(resp, "B:")
	return tf
}

// parseHeater finds label in resp and parses the "<cur>/<tgt>" pair after it.
func parseHeater(resp, label string) (cur, tgt float64, ok bool) {
	_, rest, found := strings.Cut(resp, label)
	if !found {
		return 0, 0, false
	}
	field := rest
	if i := strings.IndexAny(field, " \t\r\n"); i >= 0 {
		field = field[:i]
	}
	curStr, tgtStr, found := strings.Cut(field, "/")
	if !found {
		return 0, 0, false
	}
	cur, err := strconv.ParseFloat(curStr, 64)
	if err != nil {
		return 0, 0, false
	}
	tgt, err = strconv.ParseFloat(tgtStr, 64)
	if err != nil {
		return 0, 0, false
	}
	return cur, tgt, true
}

// parseStatusKeyword scans an M119 response for an explicit lifecycle word.
// Returns false when the firmware reported nothing usable, which is the common
// case for prints started from the touchscreen.
func parseStatusKeyword(resp string) (Status, bool) {
	lower := strings.ToLower(resp)
	switch {
	case strings.Contains(lower, "printing"):
		return StatusPrinting, true
	case strings.Contains(lower, "paused"):
		return StatusPaused, true
	case strings.Contains(lower, "complete"), strings.Contains(lower, "finished"):
		return StatusComplete, true
	case strings.Contains(lower, "error"):
		return StatusError, true
	}
	return "", false
}

// progressUpdate is the result of parsing an M27 response.
type progressUpdate struct {
	percent    int
	hasPercent bool
	// notPrinting is set for "Not SD printing" style responses. The caller
	// must only reset progress on it when no print is in flight; a late
	// progress poll must not clobber a printing status established by a more
	// recent status poll.
	notPrinting bool
}

// parseProgress extracts "byte <current>/<total>" from an M27 response and
// converts it to a rounded percentage.
func parseProgress(resp string) progressUpdate {
	lower := strings.ToLower(resp)
	if strings.Contains(resp, "SD printing") && strings.Contains(lower, "byte") {
		_, rest, _ := strings.Cut(lower, "byte")
		curStr, totalStr, found := strings.Cut(strings.TrimSpace(rest), "/")
		if !found {
			return progressUpdate{}
		}
		if i := strings.IndexAny(totalStr, " \t\r\n"); i >= 0 {
			totalStr = totalStr[:i] // trailing "ok"
		}
		cur, err := strconv.ParseInt(strings.TrimSpace(curStr), 10, 64)
		if err != nil {
			return progressUpdate{}
		}
		total, err := strconv.ParseInt(strings.TrimSpace(totalStr), 10, 64)
		if err != nil || total <= 0 {
			return progressUpdate{}
		}
		pct := int(math.Round(float64(cur) / float64(total) * 100))
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		return progressUpdate{percent: pct, hasPercent: true}
	}
	if strings.Contains(lower, "not") && strings.Contains(lower, "printing") {
		return progressUpdate{notPrinting: true}
	}
	return progressUpdate{}
}

// parsePosition extracts X/Y/Z coordinates from an M114 response.
// Missing or malformed axes stay zero.
func parsePosition(resp string) Position {
	var p Position
	if v, ok := parseAxis(resp, "X:"); ok {
		p.X = v
	}
	if v, ok := parseAxis(resp, "Y:"); ok {
		p.Y = v
	}
	if v, ok := parseAxis(resp, "Z:"); ok {
		p.Z = v
	}
	return p
}

func parseAxis(resp, label string) (float64, bool) {
	_, rest, found := strings.Cut(resp, label)
	if !found {
		return 0, false
	}
	field := rest
	if i := strings.IndexAny(field, " \t\r\n"); i >= 0 {
		field = field[:i]
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// gcodeExtensions mark a listing line as a filename candidate.
var gcodeExtensions = []string{".gcode", ".gco", ".g "}

// parseFileList scrapes filenames out of a free-text M20 listing. The firmware
// family has no confirmed listing grammar; an empty result is expected on
// printers that keep files on internal storage.
func parseFileList(resp string) []FileEntry {
	var files []FileEntry
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "ok") || strings.HasPrefix(line, "CMD") || strings.HasPrefix(line, "Received") {
			continue
		}
		lower := strings.ToLower(line)
		candidate := false
		for _, ext := range gcodeExtensions {
			if strings.Contains(lower, ext) {
				candidate = true
				break
			}
		}
		if !candidate {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		entry := FileEntry{Filename: parts[0]}
		// Best-effort size: a numeric token immediately followed by a
		// "byte"-like marker.
		for i := 0; i+1 < len(parts); i++ {
			n, err := strconv.ParseInt(parts[i], 10, 64)
			if err == nil && strings.Contains(strings.ToLower(parts[i+1]), "byte") {
				entry.SizeBytes = n
				break
			}
		}
		files = append(files, entry)
	}
	return files
}
