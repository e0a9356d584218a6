package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ipcaster/internal/config"
	"ipcaster/internal/supervisor"
	"ipcaster/pkg/muxer"
	"ipcaster/pkg/netio"
)

var playCmd = &cobra.Command{
	Use:   "play {file} {target_ip} {target_port} [{file} {target_ip} {target_port} ...]",
	Short: "Cast one or more files and exit once they've all finished playing",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runPlay,
}

// runPlay parses its positional arguments in groups of three (source file,
// destination IP, destination port), grounded on
// original_source/src/ipcaster/ConsoleOptions.hpp's parsePlay, and runs the
// supervisor in CLI mode (serverMode=false) so it exits once every stream
// reaches EOF.
func runPlay(_ *cobra.Command, args []string) error {
	if len(args)%3 != 0 {
		return fmt.Errorf("incomplete stream declaration: expected groups of {file} {ip} {port}, got %d args", len(args))
	}

	cfg := config.GetConfigWithDefaults()
	mux, err := muxer.New(cfg.Muxer.BurstPeriod, cfg.Muxer.Preroll)
	if err != nil {
		return fmt.Errorf("open muxer: %w", err)
	}
	defer mux.Close()

	sup := supervisor.New(mux, false)

	for i := 0; i+3 <= len(args); i += 3 {
		file, ipAddr, portStr := args[i], args[i+1], args[i+2]

		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid port %q for %s: %w", portStr, file, err)
		}

		if _, err := sup.CreateStream(file, netio.Endpoint{IP: ipAddr, Port: uint16(port)}); err != nil {
			return fmt.Errorf("play %s -> %s:%s: %w", file, ipAddr, portStr, err)
		}
	}

	return sup.Run(context.Background())
}
