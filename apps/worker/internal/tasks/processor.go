package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"rentdash/apps/worker/internal/mail"
)

const TypeEmailSend = "email.send"

// ErrMalformed marks a message that can never succeed; the consumer acks it
// instead of retrying.
var ErrMalformed = errors.New("malformed task")

type Processor struct {
	logger      zerolog.Logger
	mailer      mail.Mailer
	sendTimeout time.Duration
}

type TaskPayload struct {
	ID      string
	Type    string
	Payload json.RawMessage
}

type emailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func NewProcessor(logger zerolog.Logger, mailer mail.Mailer) *Processor {
	return &Processor{
		logger:      logger,
		mailer:      mailer,
		sendTimeout: 30 * time.Second,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := decodePayload(msg.Values)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch task.Type {
	case TypeEmailSend:
		return p.handleEmail(ctx, task)
	default:
		p.logger.Warn().Str("type", task.Type).Str("task_id", task.ID).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}) (TaskPayload, error) {
	var task TaskPayload
	task.ID, _ = values["id"].(string)
	task.Type, _ = values["type"].(string)
	if task.Type == "" {
		return task, errors.New("missing type")
	}
	raw, _ := values["payload"].(string)
	if raw == "" {
		raw = "{}"
	}
	if !json.Valid([]byte(raw)) {
		return task, errors.New("payload is not json")
	}
	task.Payload = json.RawMessage(raw)
	return task, nil
}

func (p *Processor) handleEmail(ctx context.Context, task TaskPayload) error {
	var payload emailPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.To == "" {
		return fmt.Errorf("%w: email without recipient", ErrMalformed)
	}

	ctx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	defer cancel()

	err := p.mailer.Send(ctx, mail.Message{To: payload.To, Subject: payload.Subject, Body: payload.Body})
	if errors.Is(err, mail.ErrInvalidMessage) {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	p.logger.Info().Str("task_id", task.ID).Str("to", payload.To).Msg("email sent")
	return nil
}
