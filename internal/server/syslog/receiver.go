package syslog

import (
	"fmt"
	"sync"

	gosyslog "gopkg.in/mcuadros/go-syslog.v2"

	"pmlogd/pkg/models"
)

// datagramReceiver accepts RFC 3164 syslog datagrams on UDP and/or a
// Unix datagram socket and hands the parsed parts to the output
// channel.
type datagramReceiver struct {
	server  *gosyslog.Server
	locker  sync.RWMutex
	running bool

	outputChan gosyslog.LogPartsChannel
}

// newDatagramReceiver creates a new datagram receiver
func newDatagramReceiver(oc gosyslog.LogPartsChannel) *datagramReceiver {
	return &datagramReceiver{
		running:    false,
		outputChan: oc,
	}
}

// start binds the configured listeners and begins sending parsed
// datagrams to the output channel
func (r *datagramReceiver) start(conf *models.ReceiverConfig) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	if r.running {
		return fmt.Errorf("datagram receiver already started")
	}

	server := gosyslog.NewServer()
	server.SetFormat(gosyslog.RFC3164)
	server.SetHandler(gosyslog.NewChannelHandler(r.outputChan))

	listening := false
	if conf.UDPAddr != "" {
		if err := server.ListenUDP(conf.UDPAddr); err != nil {
			return fmt.Errorf("failed to listen on UDP %s: %w", conf.UDPAddr, err)
		}
		listening = true
	}
	if conf.UnixPath != "" {
		if err := server.ListenUnixgram(conf.UnixPath); err != nil {
			return fmt.Errorf("failed to listen on unix socket %s: %w", conf.UnixPath, err)
		}
		listening = true
	}
	if !listening {
		return fmt.Errorf("no syslog listeners configured")
	}

	if err := server.Boot(); err != nil {
		return fmt.Errorf("failed to boot syslog server: %w", err)
	}

	r.server = server
	r.running = true
	syslog_logger.Info("Datagram receiver started", "udp", conf.UDPAddr, "unix", conf.UnixPath)
	return nil
}

// stop stops the datagram receiver
func (r *datagramReceiver) stop() error {
	r.locker.Lock()
	defer r.locker.Unlock()

	if !r.running {
		return fmt.Errorf("datagram receiver already stopped")
	}

	r.running = false
	syslog_logger.Info("Stopping datagram receiver...")

	if err := r.server.Kill(); err != nil {
		syslog_logger.Error("Error stopping syslog listeners", "error", err)
		return err
	}

	syslog_logger.Info("Datagram receiver stopped")
	return nil
}

// isRunning returns whether the receiver is running
func (r *datagramReceiver) isRunning() bool {
	r.locker.RLock()
	defer r.locker.RUnlock()
	return r.running
}
