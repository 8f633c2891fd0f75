package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"rentdash/apps/api/internal/ids"
)

const TaskEmailSend = "email.send"

// EmailTask asks the worker to deliver one message.
type EmailTask struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Publisher appends tasks to the Redis stream the worker consumes.
type Publisher struct {
	client *redis.Client
	stream string
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

func (p *Publisher) PublishEmail(ctx context.Context, task EmailTask) (string, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return "", err
	}
	return p.publish(ctx, TaskEmailSend, payload)
}

func (p *Publisher) publish(ctx context.Context, taskType string, payload []byte) (string, error) {
	if p == nil || p.client == nil {
		return "", nil
	}
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"id":      ids.New(),
			"type":    taskType,
			"payload": string(payload),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return id, nil
}
