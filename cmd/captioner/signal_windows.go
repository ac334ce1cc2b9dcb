//go:build windows

package main

import (
	"os"
	"os/signal"
)

// signalChannel returns a channel that receives os.Interrupt. Windows has no
// SIGTERM; the runtime maps CTRL_BREAK and console close to os.Interrupt.
func signalChannel() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch, func() { signal.Stop(ch) }
}
