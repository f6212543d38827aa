package util

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/drdanz/yarp-unix-socket/carrier/common"
	"github.com/drdanz/yarp-unix-socket/lib/stream"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cmd")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("yusock")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetConfig reads the shared configuration from viper
func GetConfig() common.Config {
	conf := common.DefaultConfig()
	if v := viper.GetString("socket-dir"); v != "" {
		conf.SocketDir = v
	}
	conf.TapTraffic = viper.GetBool("tap")
	conf.MetricsAddr = viper.GetString("metrics-addr")
	if v := viper.GetString("log-level"); v != "" {
		conf.LogLevel = v
	}
	return conf
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// ServeMetrics exposes the process metrics in prometheus format on addr in
// the background.
func ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			Logger.Errorf("metrics endpoint on %s failed: %v", addr, err)
		}
	}()
}

// Bridge pumps bytes between the stream and the local reader/writer until
// either direction ends, the stream dies or ctx is cancelled. Whichever
// direction finishes first ends the session; the other one is released
// through the stream's cancellation.
func Bridge(ctx context.Context, s stream.ITwoWayStream, in io.Reader, out io.Writer) error {
	stop := context.AfterFunc(ctx, s.Interrupt)
	defer stop()

	done := make(chan error, 2)
	go func() {
		_, err := io.Copy(out, s)
		done <- err
	}()
	go func() {
		_, err := io.Copy(s, in)
		done <- err
	}()

	err := <-done
	s.Interrupt()

	if err == nil || stream.IsInterrupted(err) || stream.IsClosed(err) {
		return nil
	}
	return err
}
