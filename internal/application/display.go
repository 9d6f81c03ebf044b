package application

import (
	"strconv"
	"time"
)

// DisplayURL appends the cache-busting token to a canonical avatar URL. The
// result is for rendering only and must never be stored.
func DisplayURL(canonical string, now time.Time) string {
	if canonical == "" {
		return ""
	}
	return canonical + "?t=" + strconv.FormatInt(now.UnixMilli(), 10)
}
