package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSetter is satisfied by *health.Server.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

type HealthCheckConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
	Services []string
}

// StartHealthCheck pings storage once right away and then on every tick,
// reporting SERVING or NOT_SERVING for each configured service.
func StartHealthCheck(ctx context.Context, cfg HealthCheckConfig, pinger Pinger, health StatusSetter, logger *zap.Logger) {
	if !cfg.Enabled {
		return
	}
	if pinger == nil || health == nil {
		logger.Warn("health check disabled: pinger or health server not configured")
		return
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	services := cfg.Services
	if len(services) == 0 {
		services = []string{""}
	}

	check := healthCheck{pinger: pinger, health: health, logger: logger, timeout: timeout, services: services}
	check.run(ctx)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				check.set(healthpb.HealthCheckResponse_NOT_SERVING)
				return
			case <-ticker.C:
				check.run(ctx)
			}
		}
	}()
}

type healthCheck struct {
	pinger   Pinger
	health   StatusSetter
	logger   *zap.Logger
	timeout  time.Duration
	services []string
	last     healthpb.HealthCheckResponse_ServingStatus
}

func (p *healthCheck) run(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.pinger.Ping(tickCtx)
	cancel()

	next := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		next = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if next != p.last {
		if err != nil {
			p.logger.Warn("storage unreachable", zap.Error(err))
		} else {
			p.logger.Info("storage reachable")
		}
	}
	p.set(next)
}

func (p *healthCheck) set(status healthpb.HealthCheckResponse_ServingStatus) {
	p.last = status
	for _, service := range p.services {
		p.health.SetServingStatus(service, status)
	}
}
