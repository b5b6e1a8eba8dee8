package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"reid-worker-go/internal/config"
	"reid-worker-go/internal/models"
)

// conn is the part of *nats.Conn the service uses
type conn interface {
	Publish(subject string, data []byte) error
	IsConnected() bool
	Drain() error
	Close()
}

// Service publishes identity events to NATS as JSON
type Service struct {
	conn     conn
	subject  string
	runID    string
	workerID string
	logger   zerolog.Logger

	published atomic.Int64
	failed    atomic.Int64
}

func NewService(cfg *config.Config, runID string, logger zerolog.Logger) (*Service, error) {
	opts := []nats.Option{
		nats.Name("reid-worker-" + cfg.WorkerID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS %s: %w", cfg.NatsURL, err)
	}

	logger.Info().Str("url", cfg.NatsURL).Str("subject", cfg.EventsSubject).Msg("NATS connection established")

	return newService(nc, cfg.EventsSubject, runID, cfg.WorkerID, logger), nil
}

func newService(c conn, subject, runID, workerID string, logger zerolog.Logger) *Service {
	return &Service{
		conn:     c,
		subject:  subject,
		runID:    runID,
		workerID: workerID,
		logger:   logger,
	}
}

// PublishEvent stamps the run and worker ids and sends the event on
// <subject>.<type>, e.g. reid.events.ENTER
func (s *Service) PublishEvent(event models.IdentityEvent) error {
	event.RunID = s.runID
	event.WorkerID = s.workerID

	payload, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		return fmt.Errorf("marshal identity event: %w", err)
	}

	if err := s.conn.Publish(s.subject+"."+string(event.Type), payload); err != nil {
		s.failed.Add(1)
		return fmt.Errorf("publish identity event: %w", err)
	}
	s.published.Add(1)
	return nil
}

// Publish sends any JSON encodable value on subject
func (s *Service) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.conn.Publish(subject, payload)
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Stats returns published and failed event counts
func (s *Service) Stats() (published, failed int64) {
	return s.published.Load(), s.failed.Load()
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn != nil {
		// Try graceful drain, fallback to immediate close
		if err := s.conn.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
			s.conn.Close()
		}
	}
	return nil
}
