//go:build !linux

package core

import "github.com/petermattis/goid"

// currentThreadID falls back to the goroutine id. Runtime threads are locked to
// their goroutine, so the mapping is one to one for them.
func currentThreadID() int {
	return int(goid.Get())
}

func pinCurrentThread(cpu int) error {
	return nil
}

func lowerCurrentThreadPriority(nice int) error {
	return nil
}
