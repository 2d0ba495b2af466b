// Package telemetry installs the otel meter provider the race counters
// report to.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Telemetry owns the installed meter provider
type Telemetry struct {
	provider *sdkmetric.MeterProvider
}

// SetupStdout exports every counter to w once Shutdown is called
func SetupStdout(w io.Writer) (*Telemetry, error) {
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	// the periodic reader flushes on shutdown
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	otel.SetMeterProvider(provider)
	return &Telemetry{provider: provider}, nil
}

// Shutdown flushes pending metrics
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
