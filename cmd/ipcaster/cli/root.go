// Package cli implements ipcaster's command-line interface, grounded on
// original_source/src/ipcaster/{main.cpp,ConsoleOptions.hpp}'s
// {service,play} command split and stylistically on jmylchreest-tvarr's
// cmd/tvarr-ffmpegd/cmd package (a package-level rootCmd, PersistentFlags
// for cross-cutting options, cobra.Execute as the sole exported entry
// point).
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ipcaster/internal/logging"
)

var verboseLevel int

var rootCmd = &cobra.Command{
	Use:   "ipcaster",
	Short: "Casts MPEG-2 transport stream files as SMPTE 2022-2 UDP streams",
	Long: `ipcaster reads constant-bitrate MPEG-2 transport stream files, infers their
bitrate from PCR timestamps, and casts them over UDP as SMPTE 2022-2
datagrams (7 TS packets per payload, no RTP header).

Examples:

  ipcaster play movie.ts 127.0.0.1 5000
  ipcaster play movie1.ts 127.0.0.1 5000 movie2.ts 127.0.0.1 5001
  ipcaster service
  ipcaster service --port 8080`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 3, "verbosity 0..6: 0-2=error 3=warn 4=info 5-6=debug")
	rootCmd.PersistentFlags().BoolP("license", "l", false, "show license information and exit")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if license, _ := cmd.Flags().GetBool("license"); license {
			printLicense()
			return errExit0
		}
		logging.SetDefault(logging.New(verbosityToSlogLevel(verboseLevel), false))
		return nil
	}

	rootCmd.AddCommand(serviceCmd, playCmd)
}

// errExit0 signals a clean early exit (e.g. --license) without an actual
// error; Execute treats it as success.
var errExit0 = fmt.Errorf("exit0")

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err == errExit0 {
		return nil
	}
	if err != nil {
		slog.Error("ipcaster: fatal", "err", err)
		return err
	}
	return nil
}

// verbosityToSlogLevel maps the original's 0-6 verbosity scale onto slog's
// coarser four levels.
func verbosityToSlogLevel(v int) slog.Level {
	switch {
	case v <= 2:
		return slog.LevelError
	case v == 3:
		return slog.LevelWarn
	case v == 4:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func printLicense() {
	fmt.Println("-----------------")
	fmt.Println("ipcaster license:")
	fmt.Println("-----------------")
	fmt.Println()
	fmt.Println("Licensed under the Apache License, Version 2.0 (the \"License\");")
	fmt.Println("you may not use this file except in compliance with the License.")
	fmt.Println("You may obtain a copy of the License at")
	fmt.Println()
	fmt.Println("     http://www.apache.org/licenses/LICENSE-2.0")
	fmt.Println()
	fmt.Println("Unless required by applicable law or agreed to in writing, software")
	fmt.Println("distributed under the License is distributed on an \"AS IS\" BASIS,")
	fmt.Println("WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.")
}
