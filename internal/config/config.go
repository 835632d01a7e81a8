// Package config loads ambient, ops-facing settings (log level, worker
// pool size) via viper and godotenv, the way the precursor project's
// cmd/util package does for its RPC servers. The keyspace's listen
// address and port are deliberately not configurable here: the wire spec
// fixes the server to 127.0.0.1:1234 with no startup arguments, so
// exposing a flag for it would contradict the spec's own "no
// configuration surface" clause. Metrics are collected in-process with
// no listener of their own (see internal/metrics), so there is no
// metrics address to configure either. Everything this package loads is
// operational, not protocol-affecting.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds the ambient settings a running server needs beyond the
// fixed wire protocol.
type Config struct {
	LogLevel       string
	WorkerPoolSize int
}

// RegisterFlags adds the ambient flags to cmd and binds them to viper so
// VELLUM_-prefixed environment variables can also set them.
func RegisterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log-level", "info", "log verbosity: debug, info, warn, error")
	cmd.PersistentFlags().Int("worker-pool-size", 4, "number of workers offloading large sorted-set teardown")

	_ = viper.BindPFlags(cmd.PersistentFlags())
}

// Load reads .env files (if present) and environment variables into
// viper, then returns the resolved Config.
func Load() Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("vellum")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	return Config{
		LogLevel:       viper.GetString("log-level"),
		WorkerPoolSize: viper.GetInt("worker-pool-size"),
	}
}
