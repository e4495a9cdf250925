package service

import (
	"context"
	"encoding/json"

	"municipal-assistant-be/internal/metrics"
	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IAnalyticsConsumerService interface {
	Consume(ctx context.Context) error
}

type analyticsConsumerService struct {
	subscriber message.Subscriber
	topicName  string
	logger     logger.ILogger
}

// NewAnalyticsConsumerService turns answer events into Prometheus metrics.
func NewAnalyticsConsumerService(subscriber message.Subscriber, topicName string, log logger.ILogger) IAnalyticsConsumerService {
	return &analyticsConsumerService{
		subscriber: subscriber,
		topicName:  topicName,
		logger:     log,
	}
}

func (cs *analyticsConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *analyticsConsumerService) processMessage(msg *message.Message) {
	if msg.Metadata.Get("event_type") != events.TypeAnswerCompleted {
		msg.Ack()
		return
	}

	var payload events.AnswerCompleted
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ANALYTICS", "Failed to unmarshal answer event", map[string]interface{}{"error": err.Error()})
		// Malformed events are dropped, not redelivered.
		msg.Ack()
		return
	}

	complexity := payload.Complexity
	if complexity == "" {
		complexity = "none"
	}

	metrics.AnswersTotal.WithLabelValues(payload.Outcome, complexity).Inc()
	metrics.AnswerLatency.WithLabelValues(complexity).Observe(float64(payload.LatencyMs) / 1000)
	if payload.Replayed {
		metrics.DuplicateReplays.Inc()
		msg.Ack()
		return
	}
	if payload.Scope != "" {
		metrics.ScopeNotices.WithLabelValues(payload.Scope).Inc()
		metrics.SourcesPerAnswer.Observe(float64(payload.SourceCount))
	}
	if payload.CriticScore != nil {
		metrics.CriticScores.Observe(*payload.CriticScore)
	}
	if payload.Repaired {
		metrics.Repairs.Inc()
	}

	msg.Ack()
}
