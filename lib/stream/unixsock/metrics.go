package unixsock

import "github.com/VictoriaMetrics/metrics"

// Runtime counters of this transport. They live in the default metrics set
// and can be exposed with metrics.WritePrometheus.
var (
	metricListenerOpens  = metrics.NewCounter(`unixsock_opens_total{role="listener"}`)
	metricConnectorOpens = metrics.NewCounter(`unixsock_opens_total{role="connector"}`)
	metricOpenFailures   = metrics.NewCounter(`unixsock_open_failures_total`)
	metricInterrupts     = metrics.NewCounter(`unixsock_interrupt_claims_total`)
	metricWakeRounds     = metrics.NewCounter(`unixsock_wake_rounds_total`)
	metricBytesRead      = metrics.NewCounter(`unixsock_read_bytes_total`)
	metricBytesWritten   = metrics.NewCounter(`unixsock_written_bytes_total`)
	metricPeerEOFs       = metrics.NewCounter(`unixsock_peer_eof_total`)
	metricIOErrors       = metrics.NewCounter(`unixsock_io_errors_total`)
)
