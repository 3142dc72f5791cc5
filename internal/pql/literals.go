package pql

import (
	"strconv"
	"strings"
	"time"
)

// nowFn is overridden in tests for deterministic NOW - N unit resolution.
var nowFn = func() int64 { return time.Now().UTC().Unix() }

func parseIPv4String(s string) (uint32, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var v uint32
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return 0, false
		}
		v = v<<8 | uint32(n)
	}
	return v, true
}

func parseMacString(s string) (uint64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return 0, false
	}
	var v uint64
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil || n > 255 {
			return 0, false
		}
		v = v<<8 | n
	}
	return v, true
}

// parseTimestampString parses "YYYY-MM-DD HH:MM:SS" into seconds since
// epoch (UTC), the wire format produced by the Timestamp/Date lexical
// combiners (§4.2).
func parseTimestampString(s string) (int64, bool) {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}
