//go:build unix

package sync

import (
	"os"
	"syscall"
)

// lockSyncFile takes an exclusive advisory lock on <path>.lock, serializing
// read-modify-write cycles across processes on this machine. Cross-machine
// serialization is the storage transport's concern.
func lockSyncFile(path string) (func(), error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
	}, nil
}
