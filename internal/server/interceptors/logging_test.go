package interceptors

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const checkMethod = "/grpc.health.v1.Health/Check"

func TestLoggingUnary_LogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	interceptor := LoggingUnary(zap.New(core), nil)

	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: checkMethod},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, status.Error(codes.Unavailable, "db down")
		})
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, checkMethod, fields["method"])
	assert.Equal(t, "Unavailable", fields["code"])
	assert.Equal(t, "unknown", fields["client_ip"])
}

func TestLoggingUnary_SuccessAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	interceptor := LoggingUnary(zap.New(core), nil)

	resp, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: checkMethod},
		func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	require.Len(t, logs.All(), 1)
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
}

func TestLoggingUnary_SkipMethod(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	interceptor := LoggingUnary(zap.New(core), map[string]bool{checkMethod: true})

	handlerErr := errors.New("boom")
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: checkMethod},
		func(ctx context.Context, req interface{}) (interface{}, error) { return nil, handlerErr })
	assert.ErrorIs(t, err, handlerErr)
	assert.Zero(t, logs.Len())
}

func TestLoggingUnary_NilLogger(t *testing.T) {
	interceptor := LoggingUnary(nil, nil)
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: checkMethod},
		func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil })
	assert.NoError(t, err)
}

func TestClientIP(t *testing.T) {
	withMD := func(kv map[string]string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.New(kv))
	}
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"forwarded", withMD(map[string]string{"x-forwarded-for": "192.168.1.1"}), "192.168.1.1"},
		{"forwarded chain", withMD(map[string]string{"x-forwarded-for": "192.168.1.1, 10.0.0.1"}), "192.168.1.1"},
		{"real ip", withMD(map[string]string{"x-real-ip": "192.168.1.2"}), "192.168.1.2"},
		{"forwarded wins", withMD(map[string]string{"x-forwarded-for": "192.168.1.1", "x-real-ip": "192.168.1.2"}), "192.168.1.1"},
		{"whitespace", withMD(map[string]string{"x-forwarded-for": "  192.168.1.1  "}), "192.168.1.1"},
		{"peer", peer.NewContext(context.Background(), &peer.Peer{
			Addr: &net.TCPAddr{IP: net.ParseIP("192.168.1.3"), Port: 12345},
		}), "192.168.1.3"},
		{"unknown", context.Background(), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientIP(tt.ctx))
		})
	}
}
