//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// signalChannel returns a channel that receives SIGINT and SIGTERM, the
// stop signals sent by terminals and service managers.
func signalChannel() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}
