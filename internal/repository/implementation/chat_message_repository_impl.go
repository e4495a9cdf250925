package implementation

import (
	"context"

	"municipal-assistant-be/internal/entity"
	"municipal-assistant-be/internal/mapper"
	"municipal-assistant-be/internal/model"
	"municipal-assistant-be/internal/repository/contract"
	"municipal-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

// Create inserts the message without touching the session row.
func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	m, err := r.mapper.ChatMessageToModel(message)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Omit("ChatSession").Create(m).Error; err != nil {
		return err
	}
	created, err := r.mapper.ChatMessageToEntity(m)
	if err != nil {
		return err
	}
	*message = *created
	return nil
}

func (r *ChatMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var rows []*model.ChatMessage
	if err := specification.ApplyAll(r.db.WithContext(ctx), specs...).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.mapper.ChatMessagesToEntities(rows)
}
