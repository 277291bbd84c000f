package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" authorization = Bearer x ,broken, =skip,tenant=posi")
	require.Equal(t, map[string]string{"authorization": "Bearer x", "tenant": "posi"}, got)
	require.Empty(t, ParseHeaders(""))
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without service name")
	}
}

func TestInitWithoutSignalsIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "posi-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracesBuildsExporterLazily(t *testing.T) {
	// The OTLP/HTTP exporter does not dial until the first export.
	shutdown, err := Init(context.Background(), Config{
		ServiceName: "posi-test",
		Endpoint:    "127.0.0.1:1",
		Insecure:    true,
		Traces:      true,
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
