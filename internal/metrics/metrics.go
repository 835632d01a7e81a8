// Package metrics exposes the event loop's operational counters via
// VictoriaMetrics/metrics. The teacher's go.mod already carries this
// dependency, unused; this is the first thing in this project to
// actually call it, following the library's package-level default-set
// idiom (metrics.NewCounter/NewGauge register into a global registry
// scraped by WritePrometheus) rather than threading a client object
// through every package. Labeled metrics (per verb, per close reason)
// use GetOrCreateCounter with an inline label set, the library's idiom
// for metric names that aren't known ahead of time.
package metrics

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// idleGaugeValue backs the idle-connections gauge; SetIdleConnections is
// the only writer, the gauge callback below the only reader.
var idleGaugeValue atomic.Int64

var (
	connectionsAccepted = metrics.NewCounter("vellum_connections_accepted_total")
	_                   = metrics.NewGauge("vellum_connections_idle_current", func() float64 {
		return float64(idleGaugeValue.Load())
	})
	keysExpired      = metrics.NewCounter("vellum_keys_expired_total")
	pollTickDuration = metrics.NewHistogram("vellum_poll_tick_seconds")
)

// ConnectionAccepted increments the accepted-connections counter.
func ConnectionAccepted() { connectionsAccepted.Inc() }

// ConnectionClosed increments the closed-connections counter for the
// given reason (e.g. "idle_timeout", "eof", "read_error", "write_error",
// "poll_err", "protocol_error").
func ConnectionClosed(reason string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`vellum_connections_closed_total{reason=%q}`, reason)).Inc()
}

// SetIdleConnections records the current size of the idle list. It is
// called once per poll tick from the single event-loop goroutine, so it
// needs no synchronization of its own.
func SetIdleConnections(n int) { idleGaugeValue.Store(int64(n)) }

// CommandHandled increments the processed-commands counter for verb.
// Called only for requests that resolve to a known verb with correct
// arity — routing failures are protocol- or command-level errors, not
// handled commands.
func CommandHandled(verb string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`vellum_commands_total{verb=%q}`, verb)).Inc()
}

// ProtocolError increments the protocol-error counter for the given
// reason ("too_big" or "malformed"), reported when a connection's frame
// fails to parse and must be closed.
func ProtocolError(reason string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`vellum_protocol_errors_total{reason=%q}`, reason)).Inc()
}

// KeysExpired adds n to the reaped-keys counter.
func KeysExpired(n int) {
	for i := 0; i < n; i++ {
		keysExpired.Inc()
	}
}

// WorkerPoolTaskQueued increments the worker-pool tasks-queued counter.
// Called once per Submit, from any goroutine.
func WorkerPoolTaskQueued() {
	metrics.GetOrCreateCounter("vellum_workerpool_tasks_queued_total").Inc()
}

// WorkerPoolTaskCompleted increments the worker-pool tasks-completed
// counter. Called once per finished task, from the worker goroutine that
// ran it.
func WorkerPoolTaskCompleted() {
	metrics.GetOrCreateCounter("vellum_workerpool_tasks_completed_total").Inc()
}

// ObservePollTick records the wall-clock duration of one event loop tick,
// in seconds.
func ObservePollTick(seconds float64) { pollTickDuration.Update(seconds) }

// WritePrometheus writes every registered metric in Prometheus exposition
// format to w.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
