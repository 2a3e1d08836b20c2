package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func TestServerErrorLog(t *testing.T) {
	t.Parallel()

	logger, logs := observe()
	newServerErrorLog(logger).Printf("http: TLS handshake error from %s: EOF", "127.0.0.1:1234")

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	require.Equal(t, "HTTP server: http: TLS handshake error from 127.0.0.1:1234: EOF.", entries[0].Message)
}

func TestMetricsErrorLog(t *testing.T) {
	t.Parallel()

	for name, testCase := range map[string]struct {
		err   error
		level zapcore.Level
	}{
		"broken pipe": {
			err:   &net.OpError{Op: "write", Net: "tcp", Err: syscall.EPIPE},
			level: zapcore.DebugLevel,
		},
		"canceled": {
			err:   fmt.Errorf("write failed: %w", context.Canceled),
			level: zapcore.DebugLevel,
		},
		"encoding": {
			err:   errors.New("invalid metric"),
			level: zapcore.ErrorLevel,
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			logger, logs := observe()
			newMetricsErrorLog(logger).Println("error encoding and sending metric family:", testCase.err)

			entries := logs.AllUntimed()
			require.Len(t, entries, 1)
			require.Equal(t, testCase.level, entries[0].Level)
			require.Contains(t, entries[0].Message, "Metrics handler: error encoding and sending metric family: ")
		})
	}
}
