// Command ipcaster reads CBR MPEG-2 transport stream files and casts them
// as SMPTE 2022-2 UDP streams, either as a one-shot "play" invocation or as
// a long-running service with a REST facade for managing streams.
package main

import (
	"os"

	"ipcaster/cmd/ipcaster/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
