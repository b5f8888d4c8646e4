package metrics

import (
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// Metric names; the exporter prefixes its namespace.
const (
	OperationsTotal   = "operations_total"
	OperationDuration = "operation_duration_ms"
)

// SetTelemetry forwards every recorded operation to sys as well. A nil
// sys stops forwarding.
func (c *Collector) SetTelemetry(sys *telemetry.System) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sys = sys
	c.mu.Unlock()
}

func emit(sys *telemetry.System, op string, d time.Duration, err error) {
	if sys == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	_ = sys.Counter(OperationsTotal, 1, map[string]string{
		"operation": op,
		"status":    status,
	})
	_ = sys.Histogram(OperationDuration, d, map[string]string{
		"operation": op,
	})
}

// NewPrometheusSystem starts a Prometheus exporter on addr (":0" picks a
// port) and returns a telemetry system emitting to it, plus the address
// it is bound to.
func NewPrometheusSystem(namespace, addr string) (*telemetry.System, string, error) {
	exp := exporters.NewPrometheusExporter(namespace, addr)
	if err := exp.Start(); err != nil {
		return nil, "", err
	}
	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: exp,
	})
	if err != nil {
		return nil, "", err
	}
	return sys, exp.GetAddr(), nil
}
