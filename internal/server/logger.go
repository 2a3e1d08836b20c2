package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// errorLog forwards net/http and promhttp error reports to the application logger.
type errorLog struct {
	logger *zap.SugaredLogger
	source string
}

var (
	_ io.Writer       = errorLog{}
	_ promhttp.Logger = errorLog{}
)

func newServerErrorLog(logger *zap.SugaredLogger) *log.Logger {
	return log.New(errorLog{logger: logger, source: "HTTP server"}, "", 0)
}

func newMetricsErrorLog(logger *zap.SugaredLogger) errorLog {
	return errorLog{logger: logger, source: "Metrics handler"}
}

func (l errorLog) Write(message []byte) (int, error) {
	l.log(zapcore.ErrorLevel, string(message))
	return len(message), nil
}

func (l errorLog) Println(v ...any) {
	level := zapcore.ErrorLevel
	for _, value := range v {
		if err, ok := value.(error); ok {
			if isClientGone(err) {
				level = zapcore.DebugLevel
			}
			break
		}
	}
	l.log(level, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l errorLog) log(level zapcore.Level, message string) {
	message = strings.TrimRight(message, "\n")
	l.logger.Logf(level, "%s: %s.", l.source, strings.TrimSuffix(message, "."))
}

func isClientGone(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr *net.OpError
	return errors.As(err, &netErr) && netErr.Op == "write" && (netErr.Timeout() || errors.Is(netErr.Err, syscall.EPIPE))
}
