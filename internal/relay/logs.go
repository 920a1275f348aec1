package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/chompy/internal/infrastructure/mqtt"
)

// LogEntry is one device log line as carried on chompy/log/{device}.
type LogEntry struct {
	Msg   string         `json:"msg"`
	Level string         `json:"level"`
	Time  time.Time      `json:"time"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// LogPublisher is the broker side the device's log handler needs.
type LogPublisher interface {
	Publisher
	Link
}

// logQueueSize bounds the lines waiting for the broker. Further lines are
// dropped until the queue drains.
const logQueueSize = 64

// LogHandler is a slog.Handler that passes records to next and also
// publishes them to the agent.
//
// Publishing is best effort and never blocks the caller: lines are handed
// to a single background goroutine, dropped when its queue is full, and
// only go to next while the broker is unreachable. Call Close to flush.
type LogHandler struct {
	next  slog.Handler
	fwd   *logForwarder
	attrs []slog.Attr
}

// logForwarder is shared by a LogHandler and every handler derived from it.
type logForwarder struct {
	pub     LogPublisher
	topic   string
	queue   chan []byte
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

// NewLogHandler wraps next so records are also published for deviceID.
func NewLogHandler(next slog.Handler, pub LogPublisher, deviceID string) *LogHandler {
	fwd := &logForwarder{
		pub:     pub,
		topic:   mqtt.Topics{}.Log(deviceID),
		queue:   make(chan []byte, logQueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go fwd.run()
	return &LogHandler{next: next, fwd: fwd}
}

// Enabled implements slog.Handler.
func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.next.Handle(ctx, r)
	h.forward(r)
	return err
}

// WithAttrs implements slog.Handler.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &LogHandler{
		next:  h.next.WithAttrs(attrs),
		fwd:   h.fwd,
		attrs: merged,
	}
}

// WithGroup implements slog.Handler. Groups only apply to next; published
// attributes stay flat.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{
		next:  h.next.WithGroup(name),
		fwd:   h.fwd,
		attrs: h.attrs,
	}
}

// Close stops forwarding, publishes the lines already queued and waits for
// the background goroutine. Records handled afterwards only go to next.
// Safe to call more than once, from any derived handler.
func (h *LogHandler) Close() {
	h.fwd.once.Do(func() { close(h.fwd.done) })
	<-h.fwd.stopped
}

// Dropped reports how many lines were discarded because the queue was full.
func (h *LogHandler) Dropped() uint64 {
	return h.fwd.dropped.Load()
}

func (h *LogHandler) forward(r slog.Record) {
	f := h.fwd
	if f.pub == nil {
		return
	}
	select {
	case <-f.done:
		return
	default:
	}
	if !f.pub.IsConnected() {
		return
	}

	entry := LogEntry{
		Msg:   r.Message,
		Level: r.Level.String(),
		Time:  r.Time.UTC(),
	}
	if n := len(h.attrs) + r.NumAttrs(); n > 0 {
		entry.Attrs = make(map[string]any, n)
		for _, a := range h.attrs {
			entry.Attrs[a.Key] = attrValue(a.Value)
		}
		r.Attrs(func(a slog.Attr) bool {
			entry.Attrs[a.Key] = attrValue(a.Value)
			return true
		})
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}

	select {
	case f.queue <- payload:
	default:
		f.dropped.Add(1)
	}
}

func (f *logForwarder) run() {
	defer close(f.stopped)
	for {
		select {
		case payload := <-f.queue:
			f.publish(payload)
		case <-f.done:
			for {
				select {
				case payload := <-f.queue:
					f.publish(payload)
				default:
					return
				}
			}
		}
	}
}

func (f *logForwarder) publish(payload []byte) {
	if f.pub == nil || !f.pub.IsConnected() {
		return
	}
	//nolint:errcheck // Losing a relayed log line is acceptable; the local copy was written.
	f.pub.Publish(f.topic, payload, 0, false)
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		if s, ok := v.Any().(fmt.Stringer); ok {
			return s.String()
		}
		return v.Any()
	default:
		return v.Any()
	}
}

// ForwardLogs subscribes the agent to deviceID's log lines and writes each
// one to logger, tagged with the device's own timestamp.
func ForwardLogs(sub Subscriber, deviceID string, logger *slog.Logger) error {
	topic := mqtt.Topics{}.Log(deviceID)

	err := sub.Subscribe(topic, 0, func(_ string, payload []byte) error {
		var entry LogEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return fmt.Errorf("decoding device log line: %w", err)
		}

		args := make([]any, 0, 4+2*len(entry.Attrs))
		args = append(args, "device_id", deviceID, "device_time", entry.Time)
		for k, v := range entry.Attrs {
			args = append(args, k, v)
		}
		logger.Log(context.Background(), parseLogLevel(entry.Level), "device: "+entry.Msg, args...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return nil
}

func parseLogLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
