// seedctl is the operator tool for offline seed work: generating and
// checking mnemonics, deriving addresses and sealing or opening vault blobs.
package main

import (
	"os"

	"github.com/ethereum/go-ethereum/log"
)

func main() {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelWarn, false)))
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
