//go:build linux

package core

import (
	"golang.org/x/sys/unix"
)

// currentThreadID returns the kernel id of the calling OS thread.
func currentThreadID() int {
	return unix.Gettid()
}

// pinCurrentThread restricts the calling OS thread to one CPU. The goroutine must
// already be locked to its thread.
func pinCurrentThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}

// lowerCurrentThreadPriority raises the nice value of the calling OS thread.
func lowerCurrentThreadPriority(nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), nice)
}
