package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelPublisher_DeliversPayload(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, "answers")
	require.NoError(t, err)

	score := 0.8
	pub := NewChannelPublisher(pubSub, "answers")
	require.NoError(t, pub.Publish(ctx, AnswerCompleted{
		SessionId:   "s1",
		Outcome:     "answered",
		SourceCount: 2,
		CriticScore: &score,
		OccurredAt:  time.Now(),
	}))

	select {
	case msg := <-messages:
		assert.Equal(t, TypeAnswerCompleted, msg.Metadata.Get("event_type"))
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, "s1", payload["sessionId"])
		assert.Equal(t, 0.8, payload["criticScore"])
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no message delivered")
	}
}

type recordingPublisher struct {
	got []Event
	err error
}

func (r *recordingPublisher) Publish(ctx context.Context, event Event) error {
	r.got = append(r.got, event)
	return r.err
}

func TestMultiPublisher(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("nats down")}
	multi := MultiPublisher{ok, nil, failing}

	err := multi.Publish(context.Background(), AnswerCompleted{SessionId: "s1", Outcome: "answered"})
	assert.ErrorContains(t, err, "nats down")
	require.Len(t, ok.got, 1)
	assert.Len(t, failing.got, 1)
	assert.Equal(t, TypeAnswerCompleted, ok.got[0].EventType())

	assert.NoError(t, MultiPublisher{ok}.Publish(context.Background(), AnswerCompleted{SessionId: "s2", Outcome: "saturated"}))
	assert.Len(t, ok.got, 2)
}
