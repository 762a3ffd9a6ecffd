package grpc

import (
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "orderform"

// HealthReporter publishes readiness over the standard gRPC health protocol.
// The service is SERVING while the most recent catalog load succeeded.
type HealthReporter struct {
	server *health.Server
	log    *logrus.Logger

	mu      sync.Mutex
	serving bool
}

func NewHealthReporter(logger *logrus.Logger) *HealthReporter {
	srv := health.NewServer()
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{server: srv, log: logger}
}

func (h *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// MarkServing is called once the backend has been reached at startup.
func (h *HealthReporter) MarkServing() {
	h.set(true)
}

func (h *HealthReporter) ObserveCatalogLoad(err error) {
	if err != nil {
		h.log.Warnf("Health: Catalog load failed, reporting NOT_SERVING: %v", err)
	}
	h.set(err == nil)
}

func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}

func (h *HealthReporter) set(serving bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.serving == serving {
		return
	}
	h.serving = serving
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus(ServiceName, status)
	h.server.SetServingStatus("", status)
}
