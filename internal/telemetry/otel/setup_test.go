package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewProviders_EmptyEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"", "   "} {
		providers, err := NewProviders(ctx, Options{Endpoint: endpoint, ServiceName: "test-service"}, nil)
		require.NoError(t, err, endpoint)
		require.NotNil(t, providers.TracerProvider)
		require.NotNil(t, providers.MeterProvider)
		require.NotNil(t, providers.LoggerProvider)
		// Shutdown is a no-op and may be called repeatedly.
		assert.NoError(t, providers.Shutdown(ctx))
		assert.NoError(t, providers.Shutdown(ctx))
	}
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"://invalid", "http://[invalid", "http://"} {
		_, err := NewProviders(context.Background(), Options{Endpoint: endpoint}, nil)
		assert.Error(t, err, endpoint)
	}
}

func TestParseEndpoint(t *testing.T) {
	testCases := []struct {
		name         string
		endpoint     string
		insecure     bool
		wantHost     string
		wantInsecure bool
	}{
		{"http", "http://localhost:4317", false, "localhost:4317", true},
		{"https", "https://collector:4317", false, "collector:4317", false},
		{"https insecure override", "https://collector:4317", true, "collector:4317", true},
		{"without protocol", "localhost:4317", false, "localhost:4317", true},
		{"with path", "http://localhost:4317/v1/traces", false, "localhost:4317", true},
		{"with query", "http://localhost:4317?param=value", false, "localhost:4317", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseEndpoint(tc.endpoint, tc.insecure)
			require.NoError(t, err)
			assert.Equal(t, tc.wantHost, got.host)
			assert.Equal(t, tc.wantInsecure, got.insecure)
		})
	}
}

func TestSetGlobal_WithProviders(t *testing.T) {
	providers, err := NewProviders(context.Background(), Options{ServiceName: "test-service"}, nil)
	require.NoError(t, err)

	oldTracerProvider := otel.GetTracerProvider()
	oldMeterProvider := otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(oldTracerProvider)
		otel.SetMeterProvider(oldMeterProvider)
	}()

	providers.SetGlobal()

	assert.True(t, otel.GetTracerProvider() != oldTracerProvider, "TracerProvider should be updated")
	assert.True(t, otel.GetMeterProvider() != oldMeterProvider, "MeterProvider should be updated")
}

func TestSetGlobal_PartialProviders(t *testing.T) {
	ctx := context.Background()
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(ctx) }()

	providers := &Providers{
		TracerProvider: tp,
		Shutdown:       func(context.Context) error { return nil },
	}

	oldTracerProvider := otel.GetTracerProvider()
	oldMeterProvider := otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(oldTracerProvider)
		otel.SetMeterProvider(oldMeterProvider)
	}()

	providers.SetGlobal()

	assert.True(t, otel.GetTracerProvider() != oldTracerProvider, "TracerProvider should be updated")
	assert.True(t, otel.GetMeterProvider() == oldMeterProvider, "MeterProvider should not be updated when nil")
}
