//go:build unix

package walkservice

import (
	"os"
	"syscall"
)

func device(info os.FileInfo) (uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return 0, false
	}

	return uint64(st.Dev), true
}
