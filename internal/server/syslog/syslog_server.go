package syslog

import (
	"context"
	"fmt"
	"sync"
	"time"

	gosyslog "gopkg.in/mcuadros/go-syslog.v2"

	"pmlogd/pkg/config"
	"pmlogd/pkg/logger"
	"pmlogd/pkg/models"
	"pmlogd/pkg/router"
)

var syslog_logger = logger.Syslog_logger

// SyslogServer coordinates the receiver, the handler, and the routing
// core.
type SyslogServer struct {
	conf     *models.SyslogServerConfig
	confPath string
	running  bool
	receiver *datagramReceiver
	handler  *MessageHandler
	router   router.RouterInterface

	midChannel gosyslog.LogPartsChannel
	mu         sync.RWMutex
}

// NewSyslogServer creates a new syslog server instance
func NewSyslogServer(conf *models.SyslogServerConfig, confPath string) (*SyslogServer, error) {
	if conf == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if conf.ReceiverConf == nil {
		return nil, fmt.Errorf("receiver config cannot be nil")
	}
	if conf.QueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive")
	}

	return &SyslogServer{
		conf:     conf,
		confPath: confPath,
		running:  false,
	}, nil
}

// Start loads the routing configuration (falling back to the built-in
// default on parse failure) and starts the pipeline. A listener bind
// failure is the only fatal outcome.
func (s *SyslogServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("syslog server already started")
	}

	s.router = router.NewRouter(s.loadRoutingConfig())
	s.midChannel = make(gosyslog.LogPartsChannel, s.conf.QueueSize)

	s.handler = newMessageHandler(s.router, s.midChannel)
	if err := s.handler.start(); err != nil {
		return fmt.Errorf("failed to start message handler: %w", err)
	}

	s.receiver = newDatagramReceiver(s.midChannel)
	if err := s.receiver.start(s.conf.ReceiverConf); err != nil {
		s.handler.stop()
		s.router.Shutdown()
		return fmt.Errorf("failed to start datagram receiver: %w", err)
	}

	s.running = true
	syslog_logger.Info("Syslog server started successfully",
		"udp", s.conf.ReceiverConf.UDPAddr,
		"unix", s.conf.ReceiverConf.UnixPath,
		"queue_size", s.conf.QueueSize)
	return nil
}

// Stop stops the pipeline, draining queued datagrams and flushing the
// ring buffers before the output files close.
func (s *SyslogServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("syslog server already stopped")
	}

	// Stop components in reverse order
	if err := s.receiver.stop(); err != nil {
		syslog_logger.Error("Error stopping receiver", "error", err)
	}

	s.drainQueue()

	if err := s.handler.stop(); err != nil {
		syslog_logger.Error("Error stopping handler", "error", err)
	}

	s.router.Shutdown()

	s.running = false
	syslog_logger.Info("Syslog server stopped")
	return nil
}

// Reload rebuilds the routing core from the configuration file. The
// receiver keeps listening; datagrams queue on the channel while the
// old core drains and the new one is installed.
func (s *SyslogServer) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("syslog server not running")
	}

	syslog_logger.Info("Reloading routing configuration", "path", s.confPath)

	if err := s.handler.stop(); err != nil {
		syslog_logger.Error("Error stopping handler for reload", "error", err)
	}
	s.router.Shutdown()

	s.router = router.NewRouter(s.loadRoutingConfig())
	s.handler = newMessageHandler(s.router, s.midChannel)
	return s.handler.start()
}

// loadRoutingConfig loads the config file (or the default) and applies
// the command-line flush level overrides.
func (s *SyslogServer) loadRoutingConfig() *config.Config {
	conf := config.LoadOrDefault(s.confPath)
	for name, level := range s.conf.FlushOverrides {
		if !conf.SetFlushLevel(name, level) {
			syslog_logger.Warn("Flush level override for unknown context",
				"context", name, "level", config.LevelName(level))
		}
	}
	return conf
}

// drainQueue waits for the handler to consume the datagrams that were
// queued before the receiver stopped.
func (s *SyslogServer) drainQueue() {
	for {
		if len(s.midChannel) == 0 {
			break
		}
		time.Sleep(time.Millisecond * 100)
	}
}
