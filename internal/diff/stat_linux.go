//go:build linux

package diff

import (
	"os"
	"syscall"
	"time"
)

// statSys lifts the inode-identity fields out of the raw stat structure when
// the filesystem exposes one (in-memory filesystems do not).
func statSys(e *Entry, fi os.FileInfo) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	e.CTime = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	e.Dev = uint32(st.Dev)
	e.Ino = uint32(st.Ino)
	e.UID = st.Uid
	e.GID = st.Gid
}
