package review

import (
	"time"

	"github.com/jinzhu/now"
)

// MonthStart returns midnight on the first day of t's month, in t's location.
// Free-tier usage is counted from this instant.
func MonthStart(t time.Time) time.Time {
	return now.With(t).BeginningOfMonth()
}

// Usage is a caller's review consumption for the current quota window.
// Limit is 0 for plans without a cap.
type Usage struct {
	Used  int64 `json:"used"`
	Limit int   `json:"limit"`
}
