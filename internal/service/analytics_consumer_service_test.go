package service

import (
	"context"
	"testing"
	"time"

	"municipal-assistant-be/internal/metrics"
	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsConsumer_RecordsMetrics(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := NewAnalyticsConsumerService(pubSub, "answers.test", logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	answered := metrics.AnswersTotal.WithLabelValues("answered", "complex")
	repairs := metrics.Repairs
	beforeAnswered := testutil.ToFloat64(answered)
	beforeRepairs := testutil.ToFloat64(repairs)

	score := 0.75
	pub := events.NewChannelPublisher(pubSub, "answers.test")
	require.NoError(t, pub.Publish(ctx, events.AnswerCompleted{
		Outcome:     "answered",
		Complexity:  "complex",
		Scope:       "local",
		SourceCount: 2,
		Repaired:    true,
		CriticScore: &score,
		LatencyMs:   1200,
		OccurredAt:  time.Now(),
	}))

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(answered) == beforeAnswered+1 &&
			testutil.ToFloat64(repairs) == beforeRepairs+1
	}, 2*time.Second, 10*time.Millisecond)
}
