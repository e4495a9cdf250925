package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"municipal-assistant-be/internal/constant"
	"municipal-assistant-be/internal/dto"
	"municipal-assistant-be/internal/entity"
	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/internal/repository/memory"
	"municipal-assistant-be/pkg/ai/pipeline"
	"municipal-assistant-be/pkg/ai/router"
	"municipal-assistant-be/pkg/ai/scope"
	"municipal-assistant-be/pkg/events"
	"municipal-assistant-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answererStub struct {
	mu       sync.Mutex
	calls    int
	requests []pipeline.Request
	answer   func(req pipeline.Request) (*pipeline.Answer, error)
}

func (a *answererStub) Answer(ctx context.Context, req pipeline.Request) (*pipeline.Answer, error) {
	a.mu.Lock()
	a.calls++
	a.requests = append(a.requests, req)
	a.mu.Unlock()
	return a.answer(req)
}

type corpusStub struct {
	corpus llm.Corpus
	err    error
}

func (c corpusStub) Resolve(ctx context.Context) (llm.Corpus, error) {
	return c.corpus, c.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.AnswerCompleted
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(events.AnswerCompleted); ok {
		p.events = append(p.events, e)
	}
	return nil
}

type failingAppendStore struct {
	*memory.SessionStore
	role string
}

func (s failingAppendStore) AppendMessage(ctx context.Context, message *entity.ChatMessage) error {
	if message.Role == s.role {
		return errors.New("write failed")
	}
	return s.SessionStore.AppendMessage(ctx, message)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func anytownAnswer() *pipeline.Answer {
	j := "Anytown"
	score := 0.92
	return &pipeline.Answer{
		Text: "The Anytown Select Board voted on March 4 to adopt the FY25 budget [Source: Anytown 2024 Budget].",
		Route: router.Output{
			Complexity: router.ComplexitySimple,
			Domains:    []string{"budget"},
			ScopeHint:  "local",
		},
		Sources: []llm.Reference{
			{ID: "Anytown_2024_Budget", Title: "Anytown 2024 Budget"},
		},
		RetrievalCount: 1,
		Notice:         &scope.Notice{Type: scope.SourceLocal, Jurisdiction: &j, Text: "Based on Anytown records."},
		CriticScore:    &score,
		FollowUps:      []string{"When was the budget hearing held?"},
	}
}

type fixture struct {
	svc       *chatbotService
	store     *memory.SessionStore
	answerer  *answererStub
	publisher *recordingPublisher
	clock     *clock
	sleeps    int
}

func newFixture(t *testing.T, answer func(req pipeline.Request) (*pipeline.Answer, error)) *fixture {
	t.Helper()
	f := &fixture{
		clock:     &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		answerer:  &answererStub{answer: answer},
		publisher: &recordingPublisher{},
	}
	f.store = memory.NewSessionStore(0).WithClock(f.clock.Now)
	f.svc = NewChatbotService(f.store, f.answerer, corpusStub{}, f.publisher, ChatbotOptions{
		DuplicateWindow: 2 * time.Minute,
		DuplicateWait:   5 * time.Second,
		PromptVersion:   "v2",
	}, logger.NewNopLogger()).(*chatbotService)
	f.svc.now = f.clock.Now
	f.svc.sleep = func(ctx context.Context, d time.Duration) {
		f.sleeps++
		f.clock.Advance(d)
	}
	return f
}

func (f *fixture) session(t *testing.T) uuid.UUID {
	t.Helper()
	resp, err := f.svc.CreateSession(context.Background())
	require.NoError(t, err)
	return resp.Id
}

func TestSendMessage_PersistsBothTurnsAndSetsTitle(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return anytownAnswer(), nil
	})
	ctx := context.Background()
	id := f.session(t)

	resp, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{
		Content:  "What did the Select Board decide about the FY25 budget?",
		Metadata: &dto.MessageHintsDTO{Jurisdiction: "Anytown"},
	})
	require.NoError(t, err)

	assert.Equal(t, constant.ChatMessageRoleAssistant, resp.Message.Role)
	assert.Equal(t, "answered", resp.AnswerMeta.Outcome)
	require.NotNil(t, resp.AnswerMeta.ScopeNotice)
	assert.Equal(t, "local", resp.AnswerMeta.ScopeNotice.Type)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "Anytown_2024_Budget", resp.Sources[0].Id)
	assert.Equal(t, []string{"When was the budget hearing held?"}, resp.SuggestedFollowUps)

	history, err := f.store.GetHistory(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, history[0].Role)
	require.NotNil(t, history[1].Metadata)
	assert.Equal(t, "Anytown", history[1].Metadata.Jurisdiction)
	assert.Equal(t, "v2", history[1].Metadata.PromptVersion)

	session, err := f.store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "What did the Select Board decide about the FY25 budget?", session.Title)

	require.Len(t, f.answerer.requests, 1)
	req := f.answerer.requests[0]
	assert.Equal(t, "Anytown", req.Question.Jurisdiction)
	assert.Empty(t, req.History)
	assert.Contains(t, req.SituationTitle, "Anytown")

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "answered", f.publisher.events[0].Outcome)
	assert.Equal(t, "local", f.publisher.events[0].Scope)
	assert.False(t, f.publisher.events[0].Replayed)
}

func TestSendMessage_DuplicateInsideWindowIsReplayed(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return anytownAnswer(), nil
	})
	ctx := context.Background()
	id := f.session(t)

	first, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "Who chairs the planning board?"})
	require.NoError(t, err)

	f.clock.Advance(30 * time.Second)
	second, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "  who chairs the   Planning Board? "})
	require.NoError(t, err)

	assert.Equal(t, first.Message.Id, second.Message.Id)
	assert.True(t, second.AnswerMeta.Replayed)
	assert.Equal(t, 1, f.answerer.calls)

	history, err := f.store.GetHistory(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.Len(t, f.publisher.events, 2)
	assert.True(t, f.publisher.events[1].Replayed)
}

func TestSendMessage_DuplicateOutsideWindowRegenerates(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return anytownAnswer(), nil
	})
	ctx := context.Background()
	id := f.session(t)

	first, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "Who chairs the planning board?"})
	require.NoError(t, err)

	f.clock.Advance(3 * time.Minute)
	second, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "Who chairs the planning board?"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Message.Id, second.Message.Id)
	assert.Equal(t, 2, f.answerer.calls)
}

func TestSendMessage_InFlightDuplicateWaitsForReply(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return anytownAnswer(), nil
	})
	ctx := context.Background()
	id := f.session(t)

	// An earlier submission whose reply has not been stored yet.
	require.NoError(t, f.store.AppendMessage(ctx, &entity.ChatMessage{
		ChatSessionId: id,
		Role:          constant.ChatMessageRoleUser,
		Content:       "Is the transfer station open Saturday?",
		CreatedAt:     f.clock.Now(),
	}))

	replyId := uuid.New()
	f.svc.sleep = func(ctx context.Context, d time.Duration) {
		f.sleeps++
		f.clock.Advance(d)
		require.NoError(t, f.store.AppendMessage(ctx, &entity.ChatMessage{
			Id:            replyId,
			ChatSessionId: id,
			Role:          constant.ChatMessageRoleAssistant,
			Content:       "Yes, from 8am to noon.",
			Metadata:      &entity.MessageMetadata{Outcome: entity.OutcomeAnswered, Sources: []entity.SourceRef{}, FollowUps: []string{}},
			CreatedAt:     f.clock.Now(),
		}))
	}

	resp, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "Is the transfer station open Saturday?"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.sleeps)
	assert.Equal(t, replyId, resp.Message.Id)
	assert.True(t, resp.AnswerMeta.Replayed)
	assert.Equal(t, 0, f.answerer.calls)
}

func TestSendMessage_InFlightDuplicateProceedsAfterOneWait(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return anytownAnswer(), nil
	})
	ctx := context.Background()
	id := f.session(t)

	require.NoError(t, f.store.AppendMessage(ctx, &entity.ChatMessage{
		ChatSessionId: id,
		Role:          constant.ChatMessageRoleUser,
		Content:       "Is the transfer station open Saturday?",
		CreatedAt:     f.clock.Now(),
	}))

	resp, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "Is the transfer station open Saturday?"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.sleeps)
	assert.Equal(t, 1, f.answerer.calls)
	assert.False(t, resp.AnswerMeta.Replayed)
}

func TestSendMessage_QuotaBecomesSaturatedReply(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return nil, fmt.Errorf("router: %w", llm.ErrQuotaExceeded)
	})
	id := f.session(t)

	resp, err := f.svc.SendMessage(context.Background(), id, &dto.SendMessageRequest{Content: "What is the tax rate?"})
	require.NoError(t, err)

	assert.Equal(t, constant.SaturatedMessage, resp.Message.Content)
	assert.Equal(t, "saturated", resp.AnswerMeta.Outcome)
	assert.Nil(t, resp.AnswerMeta.ScopeNotice)
	assert.Nil(t, resp.AnswerMeta.CriticScore)
	assert.Empty(t, resp.Sources)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.SuggestedFollowUps)
	assert.NotNil(t, resp.SuggestedFollowUps)
}

func TestSendMessage_TransientReplyIsNotReplayed(t *testing.T) {
	failures := map[string]error{
		"saturated": fmt.Errorf("router: %w", llm.ErrQuotaExceeded),
		"failed":    errors.New("boom"),
	}
	for outcome, failure := range failures {
		t.Run(outcome, func(t *testing.T) {
			healthy := false
			f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
				if !healthy {
					return nil, failure
				}
				return anytownAnswer(), nil
			})
			ctx := context.Background()
			id := f.session(t)

			first, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "What is the tax rate?"})
			require.NoError(t, err)
			assert.Equal(t, outcome, first.AnswerMeta.Outcome)

			healthy = true
			f.clock.Advance(10 * time.Second)
			second, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "What is the tax rate?"})
			require.NoError(t, err)

			assert.Equal(t, 2, f.answerer.calls)
			assert.Equal(t, 0, f.sleeps)
			assert.NotEqual(t, first.Message.Id, second.Message.Id)
			assert.False(t, second.AnswerMeta.Replayed)
			assert.Equal(t, "answered", second.AnswerMeta.Outcome)

			f.clock.Advance(10 * time.Second)
			third, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "What is the tax rate?"})
			require.NoError(t, err)
			assert.Equal(t, second.Message.Id, third.Message.Id)
			assert.True(t, third.AnswerMeta.Replayed)
			assert.Equal(t, 2, f.answerer.calls)
		})
	}
}

func TestSendMessage_PipelineErrorBecomesFailureReply(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return nil, errors.New("boom")
	})
	id := f.session(t)

	resp, err := f.svc.SendMessage(context.Background(), id, &dto.SendMessageRequest{Content: "What is the tax rate?"})
	require.NoError(t, err)
	assert.Equal(t, constant.FailureMessage, resp.Message.Content)
	assert.Equal(t, "failed", resp.AnswerMeta.Outcome)
}

func TestSendMessage_UnknownSession(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return anytownAnswer(), nil
	})

	_, err := f.svc.SendMessage(context.Background(), uuid.New(), &dto.SendMessageRequest{Content: "Hello?"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, f.answerer.calls)
}

func TestSendMessage_PersistenceFailureIsReturned(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return anytownAnswer(), nil
	})
	f.svc.store = failingAppendStore{SessionStore: f.store, role: constant.ChatMessageRoleAssistant}
	id := f.session(t)

	_, err := f.svc.SendMessage(context.Background(), id, &dto.SendMessageRequest{Content: "What is the tax rate?"})
	assert.Error(t, err)
	assert.Empty(t, f.publisher.events)
}

func TestSendMessage_ClarificationCarriesNoProvenance(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return &pipeline.Answer{
			Text:          "Which town do you mean?",
			Route:         router.Output{Complexity: router.ComplexitySimple, RequiresClarification: true},
			Sources:       []llm.Reference{},
			FollowUps:     []string{},
			Clarification: true,
		}, nil
	})
	id := f.session(t)

	resp, err := f.svc.SendMessage(context.Background(), id, &dto.SendMessageRequest{Content: "What did they decide?"})
	require.NoError(t, err)

	assert.Equal(t, "clarification", resp.AnswerMeta.Outcome)
	assert.True(t, resp.AnswerMeta.RequiresClarification)
	assert.Nil(t, resp.AnswerMeta.ScopeNotice)
	assert.Empty(t, resp.Sources)
}

func TestSendMessage_PassesPriorRouteAndHistory(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		a := anytownAnswer()
		a.Route.Complexity = router.ComplexityComplex
		a.Route.Domains = []string{"zoning"}
		return a, nil
	})
	ctx := context.Background()
	id := f.session(t)

	_, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "Summarize the zoning changes this year."})
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)
	_, err = f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "Who voted against it?"})
	require.NoError(t, err)

	require.Len(t, f.answerer.requests, 2)
	second := f.answerer.requests[1]
	require.NotNil(t, second.PriorRoute)
	assert.Equal(t, router.ComplexityComplex, second.PriorRoute.Complexity)
	assert.Equal(t, []string{"zoning"}, second.PriorRoute.Domains)
	require.Len(t, second.History, 2)
	assert.Equal(t, "user", second.History[0].Role)
}

func TestSendMessage_CorpusErrorContinues(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return anytownAnswer(), nil
	})
	f.svc.corpus = corpusStub{err: errors.New("redis down")}
	id := f.session(t)

	resp, err := f.svc.SendMessage(context.Background(), id, &dto.SendMessageRequest{Content: "What is the tax rate?"})
	require.NoError(t, err)
	assert.Equal(t, "answered", resp.AnswerMeta.Outcome)
	require.Len(t, f.answerer.requests, 1)
	assert.True(t, f.answerer.requests[0].Corpus.IsZero())
}

func TestGetChatHistory(t *testing.T) {
	f := newFixture(t, func(req pipeline.Request) (*pipeline.Answer, error) {
		return anytownAnswer(), nil
	})
	ctx := context.Background()
	id := f.session(t)

	_, err := f.svc.SendMessage(ctx, id, &dto.SendMessageRequest{Content: "What is the tax rate?"})
	require.NoError(t, err)

	items, err := f.svc.GetChatHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Nil(t, items[0].AnswerMeta)
	require.NotNil(t, items[1].AnswerMeta)
	assert.Len(t, items[1].Sources, 1)

	_, err = f.svc.GetChatHistory(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "Short question", TruncateTitle("  Short   question ", 60))

	long := "What are the notice requirements for a public hearing on a zoning amendment"
	got := TruncateTitle(long, 40)
	assert.LessOrEqual(t, len([]rune(got)), 40)
	assert.Equal(t, "What are the notice requirements for a…", got)
}
