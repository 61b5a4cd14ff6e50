package service

import (
	"log/slog"
	"time"
)

// LoadLocation resolves the schedule timezone. Hosts without tzdata fall back
// to a fixed UTC+7 zone, the offset existing schedules were written with.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Error("unknown schedule timezone, using UTC+7", "timezone", name, "error", err)
		return time.FixedZone("UTC+7", 7*60*60)
	}
	return loc
}
