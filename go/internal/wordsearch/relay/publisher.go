package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/events"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/orchestrator"
)

type JetStreamConfig struct {
	StreamName      string
	SubjectPrefix   string
	MaxAge          time.Duration // How long to keep messages
	MaxMsgs         int64         // Max number of messages to keep
	Replicas        int
	DuplicateWindow time.Duration // Window for duplicate detection
	QueueSize       int
	MaxRetries      int
	RetryDelay      time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		StreamName:      "WORDSEARCH_EVENTS",
		SubjectPrefix:   "wordsearch.events",
		MaxAge:          24 * time.Hour,
		MaxMsgs:         -1, // No limit
		Replicas:        1,
		DuplicateWindow: 2 * time.Minute,
		QueueSize:       1024,
		MaxRetries:      3,
		RetryDelay:      500 * time.Millisecond,
	}
}

// Envelope is the message body published for every lifecycle event.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Sink publishes one message. JetStreamSink is the production implementation.
type Sink interface {
	Publish(ctx context.Context, subject, msgID string, data []byte, header nats.Header) error
}

// JetStreamSink publishes into a JetStream stream it creates or updates on construction.
type JetStreamSink struct {
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamSink(ctx context.Context, js jetstream.JetStream, cfg JetStreamConfig) (*JetStreamSink, error) {
	s := &JetStreamSink{js: js, config: cfg}
	if err := s.ensureStream(ctx); err != nil {
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return s, nil
}

func (s *JetStreamSink) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        s.config.StreamName,
		Description: "Word search session lifecycle events",
		Subjects:    []string{fmt.Sprintf("%s.>", s.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      s.config.MaxAge,
		MaxMsgs:     s.config.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    s.config.Replicas,
		Duplicates:  s.config.DuplicateWindow,
	}

	stream, err := s.js.Stream(ctx, s.config.StreamName)
	if err != nil {
		if _, err = s.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", s.config.StreamName).Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !isStreamConfigEqual(info.Config, sc) {
		if _, err = s.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().Str("stream", s.config.StreamName).Msg("updated JetStream stream")
	}
	return nil
}

func (s *JetStreamSink) Publish(ctx context.Context, subject, msgID string, data []byte, header nats.Header) error {
	ack, err := s.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  header,
	},
		jetstream.WithMsgID(msgID),
		jetstream.WithExpectStream(s.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", msgID).
		Uint64("sequence", ack.Sequence).
		Str("stream", ack.Stream).
		Msg("published to JetStream")
	return nil
}

func isStreamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}

type outbound struct {
	subject string
	msgID   string
	data    []byte
	header  nats.Header
}

// RelayStats counts what happened to queued events.
type RelayStats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// EventRelay mirrors scheduler events onto a Sink. Publish only enqueues; Run drains the
// queue and retries each message with linear backoff.
type EventRelay struct {
	sink   Sink
	config JetStreamConfig
	queue  chan outbound

	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

var _ orchestrator.Publisher = (*EventRelay)(nil)

func NewEventRelay(sink Sink, cfg JetStreamConfig) *EventRelay {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultJetStreamConfig().QueueSize
	}
	return &EventRelay{
		sink:   sink,
		config: cfg,
		queue:  make(chan outbound, size),
	}
}

// Publish implements orchestrator.Publisher. It never blocks; when the queue is full the
// event is dropped and counted.
func (r *EventRelay) Publish(evt events.Event) {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		log.Error().Err(err).Str("event_id", evt.ID).Msg("failed to marshal event payload")
		return
	}
	kind := string(evt.Kind())
	data, err := json.Marshal(Envelope{
		EventID:   evt.ID,
		EventType: kind,
		SessionID: evt.SessionID,
		Timestamp: evt.OccurredAt.UTC(),
		Payload:   payload,
	})
	if err != nil {
		log.Error().Err(err).Str("event_id", evt.ID).Msg("failed to marshal event envelope")
		return
	}

	msg := outbound{
		subject: fmt.Sprintf("%s.%s", r.config.SubjectPrefix, kind),
		msgID:   evt.ID,
		data:    data,
		header: nats.Header{
			"Event-Type": []string{kind},
			"Session-ID": []string{evt.SessionID},
			"Event-ID":   []string{evt.ID},
		},
	}

	select {
	case r.queue <- msg:
	default:
		r.dropped.Add(1)
		log.Warn().Str("event_id", evt.ID).Str("event_type", kind).Msg("relay queue full, dropping event")
	}
}

// Run publishes queued events until ctx is cancelled.
func (r *EventRelay) Run(ctx context.Context) error {
	log.Info().
		Str("stream", r.config.StreamName).
		Str("subject_prefix", r.config.SubjectPrefix).
		Msg("event relay started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Int("pending", len(r.queue)).Msg("event relay shutting down")
			return nil
		case msg := <-r.queue:
			if err := r.publishWithRetry(ctx, msg); err != nil {
				r.failed.Add(1)
				log.Error().
					Err(err).
					Str("event_id", msg.msgID).
					Str("subject", msg.subject).
					Msg("failed to relay event")
				continue
			}
			r.published.Add(1)
		}
	}
}

// publishWithRetry attempts to publish a message with a linearly growing delay between attempts.
func (r *EventRelay) publishWithRetry(ctx context.Context, msg outbound) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.config.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := r.sink.Publish(ctx, msg.subject, msg.msgID, msg.data, msg.header)
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn().
			Err(err).
			Str("event_id", msg.msgID).
			Int("attempt", attempt+1).
			Msg("relay publish attempt failed")
	}

	return fmt.Errorf("after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}

func (r *EventRelay) Stats() RelayStats {
	return RelayStats{
		Published: r.published.Load(),
		Failed:    r.failed.Load(),
		Dropped:   r.dropped.Load(),
	}
}
