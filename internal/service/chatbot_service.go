package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"municipal-assistant-be/internal/constant"
	"municipal-assistant-be/internal/dto"
	"municipal-assistant-be/internal/entity"
	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/internal/repository/contract"
	"municipal-assistant-be/pkg/ai/pipeline"
	"municipal-assistant-be/pkg/ai/question"
	"municipal-assistant-be/pkg/ai/router"
	"municipal-assistant-be/pkg/events"
	"municipal-assistant-be/pkg/llm"

	"github.com/google/uuid"
)

const chatbotModule = "CHATBOT"

var ErrSessionNotFound = errors.New("session not found")

// IChatbotService defines the chatbot service interface
type IChatbotService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.ChatHistoryItemDTO, error)
	SendMessage(ctx context.Context, sessionId uuid.UUID, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
}

// Answerer runs the question pipeline.
type Answerer interface {
	Answer(ctx context.Context, req pipeline.Request) (*pipeline.Answer, error)
}

// CorpusResolver yields the document store handle for one request.
type CorpusResolver interface {
	Resolve(ctx context.Context) (llm.Corpus, error)
}

type ChatbotOptions struct {
	DuplicateWindow time.Duration
	DuplicateWait   time.Duration
	HistoryTurns    int
	TitleMaxLength  int
	PromptVersion   string
}

type chatbotService struct {
	store     contract.SessionStore
	answerer  Answerer
	corpus    CorpusResolver
	publisher events.Publisher
	opts      ChatbotOptions
	logger    logger.ILogger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func NewChatbotService(
	store contract.SessionStore,
	answerer Answerer,
	corpus CorpusResolver,
	publisher events.Publisher,
	opts ChatbotOptions,
	log logger.ILogger,
) IChatbotService {
	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = 120 * time.Second
	}
	if opts.DuplicateWait <= 0 {
		opts.DuplicateWait = 5 * time.Second
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = 6
	}
	if opts.TitleMaxLength <= 0 {
		opts.TitleMaxLength = 60
	}
	return &chatbotService{
		store:     store,
		answerer:  answerer,
		corpus:    corpus,
		publisher: publisher,
		opts:      opts,
		logger:    log,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

func (cs *chatbotService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	session, err := cs.store.CreateSession(ctx, "")
	if err != nil {
		return nil, err
	}
	return &dto.CreateSessionResponse{Id: session.Id, Title: session.Title, CreatedAt: session.CreatedAt}, nil
}

func (cs *chatbotService) GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.ChatHistoryItemDTO, error) {
	session, err := cs.store.GetSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	messages, err := cs.store.GetHistory(ctx, sessionId, 0)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.ChatHistoryItemDTO, 0, len(messages))
	for _, msg := range messages {
		item := &dto.ChatHistoryItemDTO{MessageDTO: toMessageDTO(msg)}
		if msg.Metadata != nil {
			meta := toAnswerMeta(msg.Metadata, false)
			item.AnswerMeta = &meta
			item.Sources = toSourceDTOs(msg.Metadata.Sources)
			item.SuggestedFollowUps = msg.Metadata.FollowUps
		}
		resp = append(resp, item)
	}
	return resp, nil
}

// SendMessage answers one question. Only persistence failures and an
// unknown session are returned as errors; every upstream failure is turned
// into a persisted fixed reply.
func (cs *chatbotService) SendMessage(ctx context.Context, sessionId uuid.UUID, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	start := cs.now()

	session, err := cs.store.GetSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	content := strings.TrimSpace(request.Content)

	replay, err := cs.checkDuplicate(ctx, sessionId, content)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		cs.logger.Info(chatbotModule, "Replaying answer for duplicate submission", map[string]interface{}{
			"sessionId": sessionId.String(),
			"messageId": replay.Id.String(),
		})
		cs.publish(ctx, replay, start, true)
		return buildSendMessageResponse(replay, true), nil
	}

	recent, err := cs.store.GetHistory(ctx, sessionId, cs.opts.HistoryTurns)
	if err != nil {
		return nil, err
	}

	q := toQuestion(content, request)

	userMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		Role:          constant.ChatMessageRoleUser,
		Content:       content,
		CreatedAt:     cs.now(),
	}
	if err := cs.store.AppendMessage(ctx, userMessage); err != nil {
		return nil, err
	}

	title := session.Title
	if !session.HasTitle() {
		title = TruncateTitle(content, cs.opts.TitleMaxLength)
		if err := cs.store.SetTitle(ctx, sessionId, title); err != nil {
			return nil, err
		}
	}

	corpus, err := cs.corpus.Resolve(ctx)
	if err != nil {
		cs.logger.Warn(chatbotModule, "Corpus handle unavailable, continuing without retrieval store", map[string]interface{}{
			"error": err.Error(),
		})
		corpus = llm.Corpus{}
	}

	answer, err := cs.answerer.Answer(ctx, pipeline.Request{
		Question:       q,
		History:        toLLMHistory(recent),
		Corpus:         corpus,
		SituationTitle: situationTitle(title, q.Jurisdiction),
		PriorRoute:     priorRoute(recent),
	})

	var assistant *entity.ChatMessage
	switch {
	case err != nil && llm.IsQuotaExceeded(err):
		cs.logger.Warn(chatbotModule, "Upstream quota exhausted", map[string]interface{}{"sessionId": sessionId.String()})
		assistant = cs.fixedReply(sessionId, constant.SaturatedMessage, entity.OutcomeSaturated, q)
	case err != nil:
		cs.logger.Error(chatbotModule, "Pipeline failed", map[string]interface{}{
			"sessionId": sessionId.String(),
			"error":     err.Error(),
		})
		assistant = cs.fixedReply(sessionId, constant.FailureMessage, entity.OutcomeFailed, q)
	default:
		assistant = &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: sessionId,
			Role:          constant.ChatMessageRoleAssistant,
			Content:       answer.Text,
			Metadata:      cs.toMetadata(answer, q),
			CreatedAt:     cs.now(),
		}
	}

	if err := cs.store.AppendMessage(ctx, assistant); err != nil {
		return nil, err
	}

	cs.publish(ctx, assistant, start, false)
	return buildSendMessageResponse(assistant, false), nil
}

// checkDuplicate looks for the same question from this session inside the
// duplicate window. A later assistant turn is replayed. When the earlier
// submission is still in flight it waits once and re-checks; after that the
// caller proceeds normally.
func (cs *chatbotService) checkDuplicate(ctx context.Context, sessionId uuid.UUID, content string) (*entity.ChatMessage, error) {
	replay, inFlight, err := cs.findReplay(ctx, sessionId, content)
	if err != nil || replay != nil || !inFlight {
		return replay, err
	}

	cs.logger.Debug(chatbotModule, "Duplicate in flight, waiting once", map[string]interface{}{
		"sessionId": sessionId.String(),
		"wait":      cs.opts.DuplicateWait.String(),
	})
	cs.sleep(ctx, cs.opts.DuplicateWait)

	replay, _, err = cs.findReplay(ctx, sessionId, content)
	return replay, err
}

func (cs *chatbotService) findReplay(ctx context.Context, sessionId uuid.UUID, content string) (*entity.ChatMessage, bool, error) {
	since := cs.now().Add(-cs.opts.DuplicateWindow)
	messages, err := cs.store.MessagesSince(ctx, sessionId, since)
	if err != nil {
		return nil, false, err
	}

	key := normalizeQuestion(content)
	matched := false
	for _, msg := range messages {
		if !matched {
			matched = msg.Role == constant.ChatMessageRoleUser && normalizeQuestion(msg.Content) == key
			continue
		}
		if msg.Role == constant.ChatMessageRoleAssistant {
			if !transientReply(msg) {
				return msg, false, nil
			}
			matched = false
		}
	}
	return nil, matched, nil
}

// transientReply reports whether an assistant turn records a temporary
// failure. Those are answered again instead of replayed.
func transientReply(msg *entity.ChatMessage) bool {
	if msg.Metadata == nil {
		return false
	}
	switch msg.Metadata.Outcome {
	case entity.OutcomeSaturated, entity.OutcomeFailed, entity.OutcomeUnavailable:
		return true
	}
	return false
}

func (cs *chatbotService) fixedReply(sessionId uuid.UUID, text string, outcome entity.Outcome, q question.Question) *entity.ChatMessage {
	return &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		Role:          constant.ChatMessageRoleAssistant,
		Content:       text,
		Metadata: &entity.MessageMetadata{
			Outcome:       outcome,
			Sources:       []entity.SourceRef{},
			FollowUps:     []string{},
			Jurisdiction:  q.Jurisdiction,
			Board:         q.Board,
			PromptVersion: cs.opts.PromptVersion,
		},
		CreatedAt: cs.now(),
	}
}

func (cs *chatbotService) toMetadata(a *pipeline.Answer, q question.Question) *entity.MessageMetadata {
	meta := &entity.MessageMetadata{
		Complexity:            string(a.Route.Complexity),
		Domains:               a.Route.Domains,
		ScopeHint:             a.Route.ScopeHint,
		RouteBypassed:         a.RouteBypassed,
		RequiresClarification: a.Clarification,
		Sources:               []entity.SourceRef{},
		FollowUps:             []string{},
		Jurisdiction:          q.Jurisdiction,
		Board:                 q.Board,
		PromptVersion:         cs.opts.PromptVersion,
	}

	switch {
	case a.Clarification:
		meta.Outcome = entity.OutcomeClarification
		return meta
	case a.Degraded:
		meta.Outcome = entity.OutcomeUnavailable
	case a.NoMaterial:
		meta.Outcome = entity.OutcomeNoMaterial
	default:
		meta.Outcome = entity.OutcomeAnswered
	}

	meta.CriticScore = a.CriticScore
	meta.LimitationsNote = a.LimitationsNote
	meta.Repaired = a.Repaired
	meta.RetrievalCount = a.RetrievalCount
	if a.Notice != nil {
		meta.ScopeNotice = &entity.ScopeNotice{
			Type:         string(a.Notice.Type),
			Jurisdiction: a.Notice.Jurisdiction,
			Text:         a.Notice.Text,
		}
	}
	for _, ref := range a.Sources {
		meta.Sources = append(meta.Sources, entity.SourceRef{Id: ref.ID, Title: ref.Title, Uri: ref.URI})
	}
	if a.FollowUps != nil {
		meta.FollowUps = a.FollowUps
	}
	return meta
}

func (cs *chatbotService) publish(ctx context.Context, msg *entity.ChatMessage, start time.Time, replayed bool) {
	if cs.publisher == nil {
		return
	}

	event := events.AnswerCompleted{
		SessionId:  msg.ChatSessionId.String(),
		MessageId:  msg.Id.String(),
		Replayed:   replayed,
		LatencyMs:  cs.now().Sub(start).Milliseconds(),
		OccurredAt: cs.now(),
	}
	if meta := msg.Metadata; meta != nil {
		event.Outcome = string(meta.Outcome)
		event.Complexity = meta.Complexity
		event.SourceCount = len(meta.Sources)
		event.Repaired = meta.Repaired
		event.CriticScore = meta.CriticScore
		if meta.ScopeNotice != nil {
			event.Scope = meta.ScopeNotice.Type
		}
	}

	if err := cs.publisher.Publish(ctx, event); err != nil {
		cs.logger.Warn(chatbotModule, "Failed to publish answer event", map[string]interface{}{"error": err.Error()})
	}
}

func toQuestion(content string, request *dto.SendMessageRequest) question.Question {
	q := question.Question{Text: content, Attachment: request.Attachment}
	if request.Metadata != nil {
		q.Jurisdiction = strings.TrimSpace(request.Metadata.Jurisdiction)
		q.Board = strings.TrimSpace(request.Metadata.Board)
	}
	return q
}

func toLLMHistory(messages []*entity.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// priorRoute recovers the route of the latest assistant turn so a deictic
// follow-up can keep its scope.
func priorRoute(messages []*entity.ChatMessage) *router.Output {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != constant.ChatMessageRoleAssistant {
			continue
		}
		if m.Metadata == nil || m.Metadata.Complexity == "" {
			return nil
		}
		domains := m.Metadata.Domains
		if domains == nil {
			domains = []string{}
		}
		return &router.Output{
			Complexity:             router.Complexity(m.Metadata.Complexity),
			Domains:                domains,
			ScopeHint:              m.Metadata.ScopeHint,
			ClarificationQuestions: []string{},
		}
	}
	return nil
}

func situationTitle(title, jurisdiction string) string {
	if jurisdiction == "" || strings.Contains(strings.ToLower(title), strings.ToLower(jurisdiction)) {
		return title
	}
	return strings.TrimSpace(title + " " + jurisdiction)
}

func normalizeQuestion(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// TruncateTitle collapses whitespace and cuts s to at most max runes,
// preferring a word boundary.
func TruncateTitle(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max < 2 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:max-1])
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func toMessageDTO(msg *entity.ChatMessage) dto.MessageDTO {
	return dto.MessageDTO{
		Id:        msg.Id,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func toAnswerMeta(meta *entity.MessageMetadata, replayed bool) dto.AnswerMetaDTO {
	out := dto.AnswerMetaDTO{
		Outcome:               string(meta.Outcome),
		Complexity:            meta.Complexity,
		RequiresClarification: meta.RequiresClarification,
		CriticScore:           meta.CriticScore,
		LimitationsNote:       meta.LimitationsNote,
		Replayed:              replayed,
	}
	if meta.ScopeNotice != nil {
		out.ScopeNotice = &dto.ScopeNoticeDTO{
			Type:         meta.ScopeNotice.Type,
			Jurisdiction: meta.ScopeNotice.Jurisdiction,
			Text:         meta.ScopeNotice.Text,
		}
	}
	return out
}

func toSourceDTOs(refs []entity.SourceRef) []dto.SourceDTO {
	out := make([]dto.SourceDTO, 0, len(refs))
	for _, r := range refs {
		out = append(out, dto.SourceDTO{Id: r.Id, Title: r.Title, Uri: r.Uri})
	}
	return out
}

func buildSendMessageResponse(msg *entity.ChatMessage, replayed bool) *dto.SendMessageResponse {
	resp := &dto.SendMessageResponse{
		Message:            toMessageDTO(msg),
		Sources:            []dto.SourceDTO{},
		SuggestedFollowUps: []string{},
	}
	if msg.Metadata != nil {
		resp.AnswerMeta = toAnswerMeta(msg.Metadata, replayed)
		resp.Sources = toSourceDTOs(msg.Metadata.Sources)
		if msg.Metadata.FollowUps != nil {
			resp.SuggestedFollowUps = msg.Metadata.FollowUps
		}
	}
	return resp
}
