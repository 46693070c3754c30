package instant

import (
	"strings"
	"time"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// cityZones maps common location names onto IANA zones. Input that is
// already a valid IANA zone name bypasses the table.
var cityZones = map[string]string{
	"london":        "Europe/London",
	"paris":         "Europe/Paris",
	"berlin":        "Europe/Berlin",
	"madrid":        "Europe/Madrid",
	"rome":          "Europe/Rome",
	"amsterdam":     "Europe/Amsterdam",
	"stockholm":     "Europe/Stockholm",
	"moscow":        "Europe/Moscow",
	"istanbul":      "Europe/Istanbul",
	"new york":      "America/New_York",
	"los angeles":   "America/Los_Angeles",
	"chicago":       "America/Chicago",
	"denver":        "America/Denver",
	"toronto":       "America/Toronto",
	"mexico city":   "America/Mexico_City",
	"sao paulo":     "America/Sao_Paulo",
	"buenos aires":  "America/Argentina/Buenos_Aires",
	"tokyo":         "Asia/Tokyo",
	"seoul":         "Asia/Seoul",
	"beijing":       "Asia/Shanghai",
	"shanghai":      "Asia/Shanghai",
	"hong kong":     "Asia/Hong_Kong",
	"singapore":     "Asia/Singapore",
	"mumbai":        "Asia/Kolkata",
	"delhi":         "Asia/Kolkata",
	"dubai":         "Asia/Dubai",
	"sydney":        "Australia/Sydney",
	"melbourne":     "Australia/Melbourne",
	"auckland":      "Pacific/Auckland",
	"cairo":         "Africa/Cairo",
	"johannesburg":  "Africa/Johannesburg",
	"lagos":         "Africa/Lagos",
	"nairobi":       "Africa/Nairobi",
	"utc":           "UTC",
	"san francisco": "America/Los_Angeles",
	"seattle":       "America/Los_Angeles",
	"boston":        "America/New_York",
	"washington":    "America/New_York",
}

// WorldTime resolves a location to its IANA zone and returns the
// current time there. now is injectable for tests.
func WorldTime(location string, now time.Time) (time.Time, string, error) {
	zone := strings.TrimSpace(location)
	if mapped, ok := cityZones[strings.ToLower(zone)]; ok {
		zone = mapped
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, "", types.NewError(types.KindNotFound, "unknown location "+location)
	}
	return now.In(loc), loc.String(), nil
}
