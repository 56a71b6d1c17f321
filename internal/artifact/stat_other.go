//go:build !darwin

package artifact

import (
	"os"
	"time"
)

// platformStatTimes falls back to ModTime for both values where birth time
// is unavailable. The two-sided freshness check degrades to a one-sided one.
func platformStatTimes(path string) (time.Time, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return info.ModTime(), info.ModTime(), nil
}
