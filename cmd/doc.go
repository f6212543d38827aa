// Package cmd implements the command-line interface for the yusock unix
// socket transport. It provides a hierarchical command structure with
// operations for running either endpoint of a stream and for benchmarking it.
//
// The package is organized into several subpackages:
//
//   - listen: Command for binding an endpoint address and piping the accepted peer to stdio
//   - connect: Command for dialing a bound endpoint address and piping the stream to stdio
//   - bench: Commands for measuring round-trip latency over a stream pair
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See yusock -help for a list of all commands.
package cmd
