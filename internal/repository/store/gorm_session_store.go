// Package store implements contract.SessionStore over the unit of work.
package store

import (
	"context"
	"fmt"
	"time"

	"municipal-assistant-be/internal/entity"
	"municipal-assistant-be/internal/repository/contract"
	"municipal-assistant-be/internal/repository/specification"
	"municipal-assistant-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type GormSessionStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewGormSessionStore(uowFactory unitofwork.RepositoryFactory) contract.SessionStore {
	return &GormSessionStore{uowFactory: uowFactory}
}

func (s *GormSessionStore) CreateSession(ctx context.Context, title string) (*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session := &entity.ChatSession{Id: uuid.New(), Title: title}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *GormSessionStore) GetSession(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: id})
}

func (s *GormSessionStore) GetHistory(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs := []specification.Specification{
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if limit > 0 {
		specs = append(specs, specification.Pagination{Limit: limit})
	}
	messages, err := uow.ChatMessageRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

func (s *GormSessionStore) MessagesSince(ctx context.Context, sessionId uuid.UUID, since time.Time) ([]*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.CreatedSince{Since: since},
		specification.OrderBy{Field: "created_at"},
	)
}

// AppendMessage writes the message and bumps the session's updated_at in
// one transaction.
func (s *GormSessionStore) AppendMessage(ctx context.Context, message *entity.ChatMessage) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	found, err := uow.ChatSessionRepository().Touch(ctx, message.ChatSessionId, time.Now())
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("session %s not found", message.ChatSessionId)
	}

	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	if err := uow.ChatMessageRepository().Create(ctx, message); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return uow.Commit()
}

func (s *GormSessionStore) SetTitle(ctx context.Context, sessionId uuid.UUID, title string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	found, err := uow.ChatSessionRepository().SetTitle(ctx, sessionId, title)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("session %s not found", sessionId)
	}
	return nil
}

func reverse(messages []*entity.ChatMessage) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
