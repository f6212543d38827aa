package connect

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
	// ConnectCmd dials an endpoint address owned by a listener and pipes the
	// stream to stdio.
	ConnectCmd = &cobra.Command{
		Use:     "connect",
		Short:   "Dial an endpoint address and pipe the stream to stdio",
		Long:    `Dial an endpoint address whose listener is already up (or comes up within the dial retries) and pipe the stream to stdin/stdout. The address entry belongs to the listener and is never created or removed by this side.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "address"
	ConnectCmd.Flags().String(key, "", util.WrapString("The endpoint address to dial (filesystem path or @abstract-name)"))
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

	s, err := unixsock.Open(ctx, address, stream.RoleConnector)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	var ts stream.ITwoWayStream = s
	if conf.TapTraffic {
		ts = stream.NewTee(s)
	}

	fmt.Fprintf(os.Stderr, "connected to %s, piping stdin/stdout (ctrl-c to quit)\n", address)
	return util.Bridge(ctx, ts, os.Stdin, os.Stdout)
}
