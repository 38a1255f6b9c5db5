package telemetry_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/Aidin1998/todokv/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_ExportsSpansOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{Tracing: true, Writer: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(ctx, "list-todos")
	span.End()

	require.NoError(t, shutdown(ctx))
	assert.Contains(t, buf.String(), "list-todos")
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), telemetry.Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
