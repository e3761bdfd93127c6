//go:build !unix

package main

import "os"

var transitionSignals []os.Signal
