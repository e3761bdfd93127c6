//go:build unix

package main

import (
	"os"
	"syscall"
)

var transitionSignals = []os.Signal{syscall.SIGUSR1}
