package engines

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeDuration canonicalizes an upstream duration string
// ("HH:MM:SS", "MM:SS", or plain seconds) into "HH:MM:SS" plus total
// seconds for sorting. Unparseable input yields ("", 0).
func NormalizeDuration(raw string) (string, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0
	}

	parts := strings.Split(raw, ":")
	var h, m, s int
	switch len(parts) {
	case 1:
		sec, err := strconv.Atoi(parts[0])
		if err != nil || sec < 0 {
			return "", 0
		}
		h, m, s = sec/3600, (sec%3600)/60, sec%60
	case 2:
		mm, err1 := strconv.Atoi(parts[0])
		ss, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || mm < 0 || ss < 0 {
			return "", 0
		}
		total := mm*60 + ss
		h, m, s = total/3600, (total%3600)/60, total%60
	case 3:
		hh, err1 := strconv.Atoi(parts[0])
		mm, err2 := strconv.Atoi(parts[1])
		ss, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || hh < 0 || mm < 0 || ss < 0 {
			return "", 0
		}
		h, m, s = hh, mm, ss
	default:
		return "", 0
	}

	total := h*3600 + m*60 + s
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s), total
}

// ParseViews converts a human-formatted view count ("1.2M views",
// "12,345") into an integer. Unparseable input yields 0.
func ParseViews(raw string) int64 {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.TrimSuffix(raw, " views")
	raw = strings.TrimSuffix(raw, " view")
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0
	}

	mult := int64(1)
	switch raw[len(raw)-1] {
	case 'k':
		mult, raw = 1_000, raw[:len(raw)-1]
	case 'm':
		mult, raw = 1_000_000, raw[:len(raw)-1]
	case 'b':
		mult, raw = 1_000_000_000, raw[:len(raw)-1]
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(f * float64(mult))
}
