//go:build darwin

package artifact

import (
	"os"
	"syscall"
	"time"
)

// platformStatTimes reads birth time and modification time. Result bundles
// are directories created once and finalized later, so the distinction
// matters for the freshness check.
func platformStatTimes(path string) (time.Time, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	modified := info.ModTime()
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		created := time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec)
		return created, modified, nil
	}
	return modified, modified, nil
}
