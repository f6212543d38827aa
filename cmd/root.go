package cmd

import (
	"fmt"
	"os"

	"github.com/drdanz/yarp-unix-socket/carrier/common"
	"github.com/drdanz/yarp-unix-socket/cmd/bench"
	"github.com/drdanz/yarp-unix-socket/cmd/connect"
	"github.com/drdanz/yarp-unix-socket/cmd/listen"
	"github.com/drdanz/yarp-unix-socket/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "yusock",
		Short: "unix socket byte streams",
		Long: fmt.Sprintf(`yusock (v%s)

A bidirectional byte stream transport over unix domain sockets,
with interruptible blocking I/O and a stream-to-stream carrier handshake.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of yusock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("yusock v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(listen.ListenCmd)
	RootCmd.AddCommand(connect.ConnectCmd)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "socket-dir"
	RootCmd.PersistentFlags().String(key, common.DefaultSocketDir, util.WrapString("Directory for sockets created from port contacts"))
	key = "tap"
	RootCmd.PersistentFlags().Bool(key, false, util.WrapString("Record stream traffic in an in-memory tap for debugging"))
	key = "metrics-addr"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("Expose prometheus metrics on this address (e.g. localhost:9091), disabled if empty"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
