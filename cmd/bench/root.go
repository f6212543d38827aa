package bench

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/drdanz/yarp-unix-socket/carrier/common"
	"github.com/drdanz/yarp-unix-socket/cmd/util"
	"github.com/drdanz/yarp-unix-socket/lib/stream"
	"github.com/drdanz/yarp-unix-socket/lib/stream/unixsock"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	// BenchCmd measures round-trip latency over a stream pair.
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Round-trip benchmark over a unix socket stream pair",
		Long:    `Measure round-trip latency over a unix socket stream pair. One side echoes every payload back (role echo), the other writes payloads and times the echo (role measure). Role self runs both sides in-process.`,
		PreRunE: processConfig,
		RunE:    run,
	}
	benchPayload int
	benchRounds  int
)

func init() {
	// add flags
	key := "address"
	BenchCmd.Flags().String(key, "", util.WrapString("The endpoint address (defaults to a fresh socket in the socket directory)"))
	key = "role"
	BenchCmd.Flags().String(key, "self", util.WrapString("Which side to run: echo, measure or self (both sides in-process)"))
	key = "payload"
	BenchCmd.Flags().Int(key, 1024, util.WrapString("Payload size per round trip in bytes"))
	key = "rounds"
	BenchCmd.Flags().Int(key, 1000, util.WrapString("Number of round trips to measure"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

// processConfig reads the benchmark parameters from the command line flags
// and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	benchPayload = viper.GetInt("payload")
	benchRounds = viper.GetInt("rounds")

	if benchPayload <= 0 {
		return fmt.Errorf("invalid payload size %d (must be > 0)", benchPayload)
	}
	if benchRounds <= 0 {
		return fmt.Errorf("invalid round count %d (must be > 0)", benchRounds)
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
	if address == "" {
		address = filepath.Join(conf.SocketDir, fmt.Sprintf("yusock-bench-%d.sock", os.Getpid()))
	}

	switch role := viper.GetString("role"); role {
	case "echo":
		fmt.Printf("echoing on %s until the peer hangs up...\n", address)
		return runEcho(ctx, address)

	case "measure":
		result, err := runMeasure(ctx, address)
		if err != nil {
			return err
		}
		printResult(result)
		return exportResult(result)

	case "self":
		fmt.Printf("running both sides in-process on %s\n", address)

		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			return runEcho(ctx, address)
		})

		var result *benchResult
		eg.Go(func() error {
			r, err := runMeasure(ctx, address)
			result = r
			return err
		})

		if err := eg.Wait(); err != nil {
			return err
		}
		printResult(result)
		return exportResult(result)

	default:
		return fmt.Errorf("invalid role %s (expected echo, measure or self)", role)
	}
}

// --------------------------------------------------------------------------
// Benchmark sides
// --------------------------------------------------------------------------

// runEcho owns the endpoint address and echoes every received payload back
// until the peer hangs up.
func runEcho(ctx context.Context, address string) error {
	s, err := unixsock.Open(ctx, address, stream.RoleListener)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	stop := context.AfterFunc(ctx, s.Interrupt)
	defer stop()

	if _, err := io.Copy(s, s); err != nil && !stream.IsInterrupted(err) && !stream.IsClosed(err) {
		return err
	}
	return nil
}

// runMeasure dials the endpoint address and times full round trips against
// the echoing peer.
func runMeasure(ctx context.Context, address string) (*benchResult, error) {
	s, err := unixsock.Open(ctx, address, stream.RoleConnector)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	stop := context.AfterFunc(ctx, s.Interrupt)
	defer stop()

	timer := gometrics.NewTimer()
	payload := make([]byte, benchPayload)
	echo := make([]byte, benchPayload)

	for i := 0; i < benchRounds; i++ {
		start := time.Now()
		if _, err := s.Write(payload); err != nil {
			if stream.IsInterrupted(err) || stream.IsClosed(err) {
				break
			}
			return nil, err
		}
		if _, err := io.ReadFull(s, echo); err != nil {
			if stream.IsInterrupted(err) || stream.IsClosed(err) {
				break
			}
			return nil, err
		}
		timer.UpdateSince(start)
	}

	if timer.Count() == 0 {
		return nil, fmt.Errorf("no round trip completed")
	}

	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
	return &benchResult{
		payload: benchPayload,
		rounds:  timer.Count(),
		minNs:   timer.Min(),
		maxNs:   timer.Max(),
		meanNs:  timer.Mean(),
		p50Ns:   ps[0],
		p95Ns:   ps[1],
		p99Ns:   ps[2],
	}, nil
}

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

type benchResult struct {
	payload int
	rounds  int64
	minNs   int64
	maxNs   int64
	meanNs  float64
	p50Ns   float64
	p95Ns   float64
	p99Ns   float64
}

// ratePerSec derives the mean number of round trips per second.
func (r *benchResult) ratePerSec() float64 {
	if r.meanNs <= 0 {
		return 0
	}
	return 1e9 / r.meanNs
}

// printResult prints the benchmark result in a formatted way
func printResult(r *benchResult) {
	fmt.Println()
	fmt.Println("Results:")
	fmt.Printf("  %-14s: %d\n", "Round Trips", r.rounds)
	fmt.Printf("  %-14s: %d bytes\n", "Payload", r.payload)
	fmt.Printf("  %-14s: %s\n", "Min", time.Duration(r.minNs))
	fmt.Printf("  %-14s: %s\n", "Mean", time.Duration(int64(r.meanNs)))
	fmt.Printf("  %-14s: %s\n", "P50", time.Duration(int64(r.p50Ns)))
	fmt.Printf("  %-14s: %s\n", "P95", time.Duration(int64(r.p95Ns)))
	fmt.Printf("  %-14s: %s\n", "P99", time.Duration(int64(r.p99Ns)))
	fmt.Printf("  %-14s: %s\n", "Max", time.Duration(r.maxNs))
	fmt.Printf("  %-14s: %.0f rt/sec\n", "Rate", r.ratePerSec())
	fmt.Printf("  %-14s: %.2f MB/s\n", "Throughput", r.ratePerSec()*float64(2*r.payload)/1e6)
}

// exportResult writes the benchmark result to a CSV file if one was requested
func exportResult(r *benchResult) error {
	csvPath := viper.GetString("csv")
	if csvPath == "" {
		return nil
	}

	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Payload", "Rounds", "MinNs", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "MaxNs", "RtPerSec"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	row := []string{
		strconv.Itoa(r.payload),
		strconv.FormatInt(r.rounds, 10),
		strconv.FormatInt(r.minNs, 10),
		fmt.Sprintf("%.0f", r.meanNs),
		fmt.Sprintf("%.0f", r.p50Ns),
		fmt.Sprintf("%.0f", r.p95Ns),
		fmt.Sprintf("%.0f", r.p99Ns),
		strconv.FormatInt(r.maxNs, 10),
		fmt.Sprintf("%.0f", r.ratePerSec()),
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %v", err)
	}

	fmt.Printf("\nResults exported to %s\n", csvPath)
	return nil
}
