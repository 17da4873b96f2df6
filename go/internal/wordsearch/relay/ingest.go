package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/session"
)

// IngestConfig holds configuration for the chat comment consumer
type IngestConfig struct {
	StreamName    string
	Subjects      []string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

// DefaultIngestConfig returns default chat consumer configuration
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		StreamName:    "WORDSEARCH_CHAT",
		Subjects:      []string{"wordsearch.chat.>"},
		ConsumerName:  "wordsearch-chat-ingest",
		SubjectFilter: "wordsearch.chat.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// ChatComment is one comment from a live chat bridge
type ChatComment struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	Comment  string `json:"comment"`
}

// Submitter is what ingest needs from the scheduler
type Submitter interface {
	SubmitCurrent(word, playerID string) session.SubmissionResult
}

// ChatIngest turns chat comments into word submissions for the current session
type ChatIngest struct {
	submitter Submitter
	consumer  jetstream.Consumer
	config    IngestConfig
}

// NewChatIngest creates the comment stream and durable consumer if they do not exist yet
func NewChatIngest(ctx context.Context, js jetstream.JetStream, cfg IngestConfig, submitter Submitter) (*ChatIngest, error) {
	ci := &ChatIngest{submitter: submitter, config: cfg}
	if err := ci.ensureConsumer(ctx, js); err != nil {
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return ci, nil
}

func (ci *ChatIngest) ensureConsumer(ctx context.Context, js jetstream.JetStream) error {
	stream, err := js.Stream(ctx, ci.config.StreamName)
	if err != nil {
		stream, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        ci.config.StreamName,
			Description: "Live chat comments submitted as word guesses",
			Subjects:    ci.config.Subjects,
			Retention:   jetstream.WorkQueuePolicy,
			Storage:     jetstream.FileStorage,
			MaxAge:      time.Hour,
		})
		if err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", ci.config.StreamName).Msg("created chat stream")
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          ci.config.ConsumerName,
		Durable:       ci.config.ConsumerName,
		Description:   "Chat comment word submitter",
		FilterSubject: ci.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ci.config.MaxDeliver,
		AckWait:       ci.config.AckWait,
		MaxAckPending: ci.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, ci.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", ci.config.ConsumerName).
			Str("stream", ci.config.StreamName).
			Msg("created JetStream consumer")
	} else {
		log.Info().
			Str("consumer", ci.config.ConsumerName).
			Str("stream", ci.config.StreamName).
			Msg("using existing JetStream consumer")
	}

	ci.consumer = consumer
	return nil
}

// Start consumes comments until ctx is cancelled
func (ci *ChatIngest) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ci.config.ConsumerName).
		Str("stream", ci.config.StreamName).
		Msg("starting chat ingest")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := ci.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("chat ingest shutting down")
			return nil
		case msg := <-messageCh:
			if _, err := ci.HandleComment(msg.Data()); err != nil {
				// Malformed comments are acked so they are not redelivered.
				log.Warn().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed chat comment")
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

// HandleComment submits every candidate word in one comment and returns how many were
// accepted.
func (ci *ChatIngest) HandleComment(data []byte) (int, error) {
	var c ChatComment
	if err := json.Unmarshal(data, &c); err != nil {
		return 0, fmt.Errorf("unmarshal chat comment: %w", err)
	}

	player := strings.TrimSpace(c.Username)
	if player == "" {
		player = strings.TrimSpace(c.UserID)
	}
	if player == "" {
		player = "chat"
	}

	accepted := 0
	for _, word := range ExtractWords(c.Comment) {
		res := ci.submitter.SubmitCurrent(word, player)
		if res.Success {
			accepted++
			continue
		}
		log.Debug().
			Str("player_id", player).
			Str("word", word).
			Str("reason", string(res.Reason)).
			Msg("chat word rejected")
	}
	return accepted, nil
}

// ExtractWords strips punctuation from a comment and returns its uppercased tokens of at
// least three characters. Digits and underscores are kept so the session can reject them.
func ExtractWords(comment string) []string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, comment)

	var words []string
	for _, tok := range strings.Fields(clean) {
		if len([]rune(tok)) >= session.MinWordLength {
			words = append(words, strings.ToUpper(tok))
		}
	}
	return words
}
