package listen

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/drdanz/yarp-unix-socket/carrier/common"
	"github.com/drdanz/yarp-unix-socket/cmd/util"
	"github.com/drdanz/yarp-unix-socket/lib/stream"
	"github.com/drdanz/yarp-unix-socket/lib/stream/unixsock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// ListenCmd binds an endpoint address, waits for one peer and pipes the
	// stream to stdio.
	ListenCmd = &cobra.Command{
		Use:     "listen",
		Short:   "Bind an endpoint address and pipe the accepted peer to stdio",
		Long:    `Bind an endpoint address, wait for exactly one peer to connect and pipe the stream to stdin/stdout. The address entry is created on open and removed again on close. Interrupt with ctrl-c to close the stream from a second goroutine while I/O is in flight.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "address"
	ListenCmd.Flags().String(key, "", util.WrapString("The endpoint address to bind (filesystem path or @abstract-name)"))
}

// processConfig reads the endpoint address from the command line flags and
// environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if viper.GetString("address") == "" {
		return fmt.Errorf("no endpoint address configured (--address or YUSOCK_ADDRESS)")
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	conf := util.GetConfig()
	common.InitLoggers(conf)
	util.Logger.Debugf("active configuration: %s", conf.String())

	if conf.MetricsAddr != "" {
		util.ServeMetrics(conf.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	address := viper.GetString("address")
	fmt.Fprintf(os.Stderr, "listening on %s, waiting for a peer...\n", address)

	s, err := unixsock.Open(ctx, address, stream.RoleListener)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	var ts stream.ITwoWayStream = s
	if conf.TapTraffic {
		ts = stream.NewTee(s)
	}

	fmt.Fprintln(os.Stderr, "peer connected, piping stdin/stdout (ctrl-c to quit)")
	return util.Bridge(ctx, ts, os.Stdin, os.Stdout)
}
