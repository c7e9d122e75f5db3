//go:build windows

package sync

import (
	"os"

	"golang.org/x/sys/windows"
)

// lockSyncFile takes an exclusive lock on <path>.lock, serializing
// read-modify-write cycles across processes on this machine. Cross-machine
// serialization is the storage transport's concern.
func lockSyncFile(path string) (func(), error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	ol := new(windows.Overlapped)
	if err := windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK,
		0, 1, 0, ol,
	); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, new(windows.Overlapped))
		f.Close()
	}, nil
}
