// Command vellum runs the key-value server. It takes no arguments that
// affect the wire protocol; the fixed 127.0.0.1:1234 listen address has
// no flag, matching the server's "no configuration surface" contract.
// Flags only ever tune ambient concerns: log level and worker pool size.
// Metrics are collected in-process (internal/metrics) with no listener
// of their own, so there is deliberately no metrics flag either.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eric-armendariz/build-redis/internal/config"
	"github.com/eric-armendariz/build-redis/internal/engine"
	"github.com/eric-armendariz/build-redis/internal/logging"
)

const version = "0.1.0"

var startTime = time.Now()

func monotonicMs() uint64 {
	return uint64(time.Since(startTime).Milliseconds())
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vellum",
		Short: "an in-memory key-value server",
		Long: fmt.Sprintf(`vellum (v%s)

A single-threaded, poll-driven in-memory key-value server supporting
opaque byte strings and sorted sets, with millisecond TTLs.`, version),
		RunE: runServe,
	}
	config.RegisterFlags(root)
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vellum v%s\n", version)
		},
	})
	return root
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logging.Init(cfg.LogLevel)
	log := logging.Get("engine")

	srv, err := engine.New(cfg.WorkerPoolSize, monotonicMs)
	if err != nil {
		return fmt.Errorf("bind 127.0.0.1:1234: %w", err)
	}
	defer srv.Close()

	log.Infof("listening on 127.0.0.1:1234")
	return srv.Run()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
