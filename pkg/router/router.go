package router

import (
	"pmlogd/pkg/config"
	"pmlogd/pkg/logger"
)

var router_logger = logger.Router_logger

// RouterInterface is the entry point the receiver subsystem drives. One
// message at a time; the caller serializes delivery.
type RouterInterface interface {
	// Submit routes one formatted line. The context name may be
	// unknown or empty; routing falls back to the global context.
	Submit(contextName string, facility, level int, program, line string)
	// Shutdown flushes every non-empty ring buffer and closes the
	// output files.
	Shutdown()
	// Dropped returns the count of lines dropped because they alone
	// exceed their context's ring buffer budget. Lines evicted to make
	// room for newer ones are not counted.
	Dropped() uint64
}

// Router owns the routing core: the immutable configuration tables,
// one writer per output, and one ring buffer per buffered context.
// All methods must be called from a single goroutine.
type Router struct {
	conf    *config.Config
	writers []*outputWriter
	buffers map[string]*ringBuffer
}

// NewRouter builds the routing core for a loaded configuration.
// Writers open their files lazily on first write.
func NewRouter(conf *config.Config) *Router {
	r := &Router{
		conf:    conf,
		writers: make([]*outputWriter, 0, len(conf.Outputs)),
		buffers: make(map[string]*ringBuffer),
	}
	for i := range conf.Outputs {
		r.writers = append(r.writers, newOutputWriter(&conf.Outputs[i]))
	}
	for name, ctx := range conf.Contexts {
		if ctx.Buffered() {
			r.buffers[name] = newRingBuffer(ctx.BufferSize)
		}
	}
	return r
}

// Submit routes one message. For a buffered context, messages less
// severe than the flush level are captured instead of written; a
// message at or above the flush level drains the buffer first so the
// retained predecessors land in the outputs before the trigger line.
func (r *Router) Submit(contextName string, facility, level int, program, line string) {
	ctx := r.lookupContext(contextName)

	if buffer, ok := r.buffers[ctx.Name]; ok {
		if level > ctx.FlushLevel {
			if !buffer.add(bufferedEntry{
				context:  ctx.Name,
				facility: facility,
				level:    level,
				program:  program,
				line:     line,
			}) {
				router_logger.Debug("Line exceeds buffer budget, dropping",
					"context", ctx.Name, "bytes", len(line))
			}
			return
		}
		r.flush(buffer)
	}

	r.route(ctx, facility, level, program, line)
}

// Shutdown treats shutdown as a synthetic trigger at the most severe
// level: every non-empty buffer drains through the classifier, then
// all output handles are closed.
func (r *Router) Shutdown() {
	for name, buffer := range r.buffers {
		if buffer.length() > 0 {
			router_logger.Info("Flushing buffered lines", "context", name, "lines", buffer.length())
			r.flush(buffer)
		}
	}
	for _, w := range r.writers {
		if err := w.close(); err != nil {
			router_logger.Warn("Error closing output", "output", w.name, "error", err)
		}
	}
}

// Dropped returns the total count of oversized lines the ring buffers
// refused; evicted lines are not counted.
func (r *Router) Dropped() uint64 {
	var n uint64
	for _, buffer := range r.buffers {
		n += buffer.dropped
	}
	return n
}

// lookupContext resolves a context name, falling back to the global
// context for unknown or empty names.
func (r *Router) lookupContext(name string) *config.ContextConf {
	if ctx := r.conf.Context(name); ctx != nil {
		return ctx
	}
	return r.conf.Global()
}

// route writes the line to every output the context's rules select.
func (r *Router) route(ctx *config.ContextConf, facility, level int, program, line string) {
	for _, index := range classify(ctx, facility, level, program) {
		r.writers[index].writeLine(line)
	}
}

// flush drains a ring buffer in arrival order, re-classifying each
// entry under its stored context.
func (r *Router) flush(buffer *ringBuffer) {
	for _, entry := range buffer.drain() {
		ctx := r.lookupContext(entry.context)
		r.route(ctx, entry.facility, entry.level, entry.program, entry.line)
	}
}

// classify evaluates the context's rules in declared order and returns
// the ordered, deduplicated output indices to write to. The first
// matching rule for an output decides it: a positive match adds it, an
// omit match suppresses it, and later matches for the same output are
// ignored either way.
func classify(ctx *config.ContextConf, facility, level int, program string) []int {
	var targets []int
	decided := make(map[int]bool, len(ctx.Rules))

	for i := range ctx.Rules {
		rule := &ctx.Rules[i]

		if rule.Facility != config.Any && rule.Facility != facility {
			continue
		}
		if rule.Level != config.Any {
			if rule.LevelInvert {
				if level == rule.Level {
					continue
				}
			} else if level != rule.Level {
				continue
			}
		}
		if rule.Program != "" && rule.Program != program {
			continue
		}

		if decided[rule.OutputIndex] {
			continue
		}
		decided[rule.OutputIndex] = true
		if !rule.Omit {
			targets = append(targets, rule.OutputIndex)
		}
	}

	return targets
}
