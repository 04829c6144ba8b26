package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Cyvadra/signal-desk/internal/database"
	"github.com/Cyvadra/signal-desk/internal/models"
	"gorm.io/gorm"
)

const maxTitleLength = 48

// ErrConversationNotFound is returned for unknown conversation ids
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationService handles conversation and message persistence
type ConversationService struct {
	db *gorm.DB
}

// NewConversationService creates a new conversation service
func NewConversationService() *ConversationService {
	return &ConversationService{
		db: database.GetDB(),
	}
}

// SetDB sets the database used by the service
func (s *ConversationService) SetDB(db *gorm.DB) { s.db = db }

// ListConversations returns conversations, most recently updated first
func (s *ConversationService) ListConversations() ([]models.Conversation, error) {
	var records []models.ConversationRecord
	if err := s.db.Order("updated_at DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	conversations := make([]models.Conversation, 0, len(records))
	for _, r := range records {
		conversations = append(conversations, r.ToModel())
	}
	return conversations, nil
}

// GetConversation retrieves a conversation by id
func (s *ConversationService) GetConversation(id int64) (*models.ConversationRecord, error) {
	var record models.ConversationRecord
	if err := s.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Messages returns the messages of a conversation in chronological order
func (s *ConversationService) Messages(conversationID int64) ([]models.Message, error) {
	if _, err := s.GetConversation(conversationID); err != nil {
		return nil, err
	}

	var records []models.MessageRecord
	if err := s.db.Where("conversation_id = ?", conversationID).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]models.Message, 0, len(records))
	for _, r := range records {
		msg, err := r.ToModel()
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", r.ID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// CreateConversation starts a conversation titled after its first message
func (s *ConversationService) CreateConversation(accountID uint, firstMessage string) (*models.ConversationRecord, error) {
	record := &models.ConversationRecord{
		AccountID: accountID,
		Title:     titleFrom(firstMessage),
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return record, nil
}

// AppendMessage stores a message and bumps the conversation's update time
func (s *ConversationService) AppendMessage(conversationID int64, role models.Role, content string, configs []models.SignalConfig) (*models.MessageRecord, error) {
	record := &models.MessageRecord{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
	if len(configs) > 0 {
		data, err := json.Marshal(configs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode signal configs: %w", err)
		}
		record.SignalConfigs = string(data)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Model(&models.ConversationRecord{}).
			Where("id = ?", conversationID).
			Update("updated_at", record.CreatedAt).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return record, nil
}

func titleFrom(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	if utf8.RuneCountInString(title) <= maxTitleLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxTitleLength-3]) + "..."
}
