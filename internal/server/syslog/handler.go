package syslog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	gosyslog "gopkg.in/mcuadros/go-syslog.v2"
	"gopkg.in/mcuadros/go-syslog.v2/format"

	"pmlogd/pkg/config"
	"pmlogd/pkg/models"
	"pmlogd/pkg/router"
)

// timestampLayout renders RFC 3339 UTC with microsecond precision.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// MessageHandler converts parsed datagrams into routed log lines. A
// single worker drains the input channel: the routing core is
// single-threaded by contract, and one consumer keeps lines in arrival
// order within every output file.
type MessageHandler struct {
	router    router.RouterInterface
	workersWg sync.WaitGroup
	running   bool
	mu        sync.RWMutex
	inputChan gosyslog.LogPartsChannel
	stopChan  chan struct{}
}

// newMessageHandler creates a new message handler instance
func newMessageHandler(r router.RouterInterface, inputChan gosyslog.LogPartsChannel) *MessageHandler {
	return &MessageHandler{
		router:    r,
		stopChan:  make(chan struct{}),
		inputChan: inputChan,
	}
}

// start starts the handler worker
func (h *MessageHandler) start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return fmt.Errorf("message handler already started")
	}

	h.running = true
	h.workersWg.Add(1)
	go h.worker()

	syslog_logger.Info("Message handler started")
	return nil
}

// stop stops the handler worker
func (h *MessageHandler) stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return fmt.Errorf("message handler already stopped")
	}

	close(h.stopChan)
	h.workersWg.Wait()

	h.running = false
	syslog_logger.Info("Message handler stopped")
	return nil
}

// worker processes datagrams from the input channel
func (h *MessageHandler) worker() {
	defer h.workersWg.Done()

	for {
		select {
		case <-h.stopChan:
			syslog_logger.Debug("Handler worker stopping")
			return
		case parts, ok := <-h.inputChan:
			if !ok {
				syslog_logger.Debug("Input channel closed, worker exiting")
				return
			}
			h.processMessage(parts)
		}
	}
}

// processMessage routes a single parsed datagram
func (h *MessageHandler) processMessage(parts format.LogParts) {
	msg := h.convertToLogMessage(parts)
	h.router.Submit(msg.Context, msg.Facility, msg.Severity, msg.Program, msg.Line)
}

// convertToLogMessage maps the parser's LogParts to our LogMessage
// model with tolerant defaults for fields the sender omitted.
func (h *MessageHandler) convertToLogMessage(parts format.LogParts) *models.LogMessage {
	facility, _ := parts["facility"].(int)
	severity, _ := parts["severity"].(int)
	tag, _ := parts["tag"].(string)
	content, _ := parts["content"].(string)
	hostname, _ := parts["hostname"].(string)

	timestamp, ok := parts["timestamp"].(time.Time)
	if !ok {
		timestamp = time.Now()
	}
	if hostname == "" {
		hostname = "localhost"
	}

	return &models.LogMessage{
		ReceivedAt: timestamp,
		Host:       hostname,
		Program:    tag,
		Context:    contextOf(content),
		Facility:   facility,
		Severity:   severity,
		Line:       formatLine(timestamp, hostname, tag, content),
	}
}

// contextOf returns the context named by a leading "name:" token of
// the message body, or "" when the body carries none. The token is a
// candidate only; unknown names fall back to the global context in the
// router.
func contextOf(content string) string {
	head, _, ok := strings.Cut(content, ":")
	if !ok || head == "" || len(head) > config.ContextMaxNameLen {
		return ""
	}
	if strings.ContainsAny(head, " \t") {
		return ""
	}
	return head
}

// formatLine renders the on-disk line:
//
//	<timestamp> <host> <program>: <message>
//
// The pid suffix is omitted because the datagram transport does not
// carry one.
func formatLine(timestamp time.Time, host, tag, content string) string {
	stamp := timestamp.UTC().Format(timestampLayout)
	if tag == "" {
		return fmt.Sprintf("%s %s %s", stamp, host, content)
	}
	return fmt.Sprintf("%s %s %s: %s", stamp, host, tag, content)
}
