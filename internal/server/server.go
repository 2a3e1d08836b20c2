// Package server is the HTTP interface of the daemon mode.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/ggicci/httpin"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sysjosh/digestd/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

// PreviewFunc renders the digest of the current selection for the specified unsubscribe token.
type PreviewFunc func(ctx context.Context, token string) (string, error)

type Server struct {
	router    *mux.Router
	registry  *prometheus.Registry
	scheduler *scheduler.Scheduler
	preview   PreviewFunc
}

func New(
	ctx context.Context, ingestion *scheduler.Scheduler, preview PreviewFunc, custom ...prometheus.Collector,
) (*Server, error) {
	s := &Server{
		router:    mux.NewRouter(),
		registry:  prometheus.NewRegistry(),
		scheduler: ingestion,
		preview:   preview,
	}

	if err := s.registerCollectors(custom); err != nil {
		return nil, err
	}

	s.register("/healthz", http.MethodGet, s.healthz)
	s.register("/preview", http.MethodGet, s.previewDigest)
	s.register("/ingest", http.MethodPost, s.triggerIngestion)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorLog: newMetricsErrorLog(logging.L(ctx)),
	})).Methods(http.MethodGet)

	return s, nil
}

func (s *Server) registerCollectors(custom []prometheus.Collector) error {
	for _, collector := range append([]prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}, custom...) {
		if err := s.registry.Register(collector); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve serves HTTP requests until the context is canceled or the server crashes.
func (s *Server) Serve(ctx context.Context, addr string) error {
	var waitGroup sync.WaitGroup
	defer waitGroup.Wait()

	//nolint:gosec
	server := http.Server{
		Addr:     addr,
		Handler:  s.router,
		ErrorLog: newServerErrorLog(logging.L(ctx)),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	socket, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	logging.L(ctx).Infof("Listening on %s...", socket.Addr())

	serverCrashed := make(chan error, 1)
	waitGroup.Go(func() {
		if err := server.Serve(socket); !errors.Is(err, http.ErrServerClosed) {
			serverCrashed <- fmt.Errorf("HTTP server has crashed: %w", err)
		}
	})

	select {
	case err := <-serverCrashed:
		return err
	case <-ctx.Done():
	}

	logging.L(ctx).Infof("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.L(ctx).Errorf("Failed to shutdown HTTP server: %s.", err)
	}

	return nil
}

type healthStatus struct {
	Status   string     `json:"status"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	Duration string     `json:"duration,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func (s *Server) healthz(ctx context.Context, writer http.ResponseWriter, request *http.Request) {
	status := healthStatus{Status: "pending"}

	if result, ok := s.scheduler.Last(); ok {
		status.LastRun = &result.StartTime
		status.Duration = result.Duration.Round(time.Millisecond).String()
		if result.Err != nil {
			status.Status = "failed"
			status.Error = result.Err.Error()
		} else {
			status.Status = "ok"
		}
	}

	writeJSON(ctx, writer, http.StatusOK, status)
}

type previewParams struct {
	Token string `in:"query=token"`
}

func (s *Server) previewDigest(ctx context.Context, writer http.ResponseWriter, request *http.Request) {
	params, err := httpin.Decode[previewParams](request)
	if err != nil {
		logging.L(ctx).Warnf("Invalid preview parameters: %s.", err)
		http.Error(writer, "Invalid parameters", http.StatusBadRequest)
		return
	}

	html, err := s.preview(ctx, params.Token)
	if err != nil {
		logging.L(ctx).Errorf("Failed to render digest preview: %s.", err)
		http.Error(writer, "Failed to render the digest", http.StatusBadGateway)
		return
	}

	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := writer.Write([]byte(html)); err != nil {
		logging.L(ctx).Debugf("Failed to write the response: %s.", err)
	}
}

func (s *Server) triggerIngestion(ctx context.Context, writer http.ResponseWriter, request *http.Request) {
	triggered := s.scheduler.Trigger()
	if triggered {
		logging.L(ctx).Infof("Ingestion has been triggered.")
	}
	writeJSON(ctx, writer, http.StatusAccepted, map[string]bool{"triggered": triggered})
}

func writeJSON(ctx context.Context, writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(value); err != nil {
		logging.L(ctx).Debugf("Failed to write the response: %s.", err)
	}
}

func (s *Server) register(
	path string, method string, handler func(ctx context.Context, writer http.ResponseWriter, request *http.Request),
) {
	s.router.HandleFunc(path, func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		logging.L(ctx).Debugf("%s %s...", request.Method, request.RequestURI)
		handler(ctx, writer, request)
		logging.L(ctx).Debugf("%s %s finished.", request.Method, request.RequestURI)
	}).Methods(method)
}
