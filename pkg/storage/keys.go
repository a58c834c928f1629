package storage

import "time"

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timeLayout sorts lexically, unlike RFC3339Nano.
const timeLayout = "2006-01-02 15:04:05.000000"

// parseTime accepts timeLayout, the CURRENT_TIMESTAMP layout and RFC3339.
func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}
