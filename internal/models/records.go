package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountRecord is a trading account known to the backend
type AccountRecord struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Name         string         `json:"name" gorm:"uniqueIndex;not null"`
	Exchange     string         `json:"exchange"`
	IsActive     bool           `json:"is_active" gorm:"default:true"`
	LastSyncedAt *time.Time     `json:"last_synced_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// ToModel converts the record to its API representation
func (r AccountRecord) ToModel() Account {
	return Account{ID: r.ID, Name: r.Name, Exchange: r.Exchange, IsActive: r.IsActive}
}

// ConversationRecord stores a chat conversation
type ConversationRecord struct {
	ID        int64          `json:"id" gorm:"primaryKey"`
	AccountID uint           `json:"account_id" gorm:"index"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Messages []MessageRecord `json:"messages" gorm:"foreignKey:ConversationID"`
}

// ToModel converts the record to its API representation
func (r ConversationRecord) ToModel() Conversation {
	return Conversation{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

// MessageRecord stores a chat message; signal configs are kept as JSON text
type MessageRecord struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	ConversationID int64     `json:"conversation_id" gorm:"index;not null"`
	Role           Role      `json:"role" gorm:"not null"`
	Content        string    `json:"content" gorm:"type:text"`
	SignalConfigs  string    `json:"signal_configs" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToModel converts the record to its API representation
func (r MessageRecord) ToModel() (Message, error) {
	msg := Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Role:           r.Role,
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
	}
	if r.SignalConfigs != "" {
		if err := json.Unmarshal([]byte(r.SignalConfigs), &msg.SignalConfigs); err != nil {
			return Message{}, err
		}
	}
	return msg, nil
}

// SignalRecord stores a signal or signal pool created from a chat proposal
type SignalRecord struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Type      ConfigType     `json:"type" gorm:"index;not null"`
	Name      string         `json:"name"`
	Symbol    string         `json:"symbol"`
	Payload   string         `json:"payload" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TradeRecord stores an executed trade pulled from an exchange
type TradeRecord struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	AccountID          uint            `json:"account_id" gorm:"uniqueIndex:idx_account_trade;not null"`
	TradeID            int64           `json:"trade_id" gorm:"uniqueIndex:idx_account_trade;not null"`
	Symbol             string          `json:"symbol" gorm:"uniqueIndex:idx_account_trade;not null"`
	TradeTime          time.Time       `json:"trade_time" gorm:"index"`
	Side               Side            `json:"side"`
	Price              decimal.Decimal `json:"price" gorm:"type:decimal(30,10)"`
	Quantity           decimal.Decimal `json:"quantity" gorm:"type:decimal(30,10)"`
	Notional           decimal.Decimal `json:"notional" gorm:"type:decimal(30,10)"`
	RealizedPnL        decimal.Decimal `json:"realized_pnl" gorm:"type:decimal(30,10)"`
	TriggerType        TriggerType     `json:"trigger_type"`
	SignalPoolID       *uint           `json:"signal_pool_id"`
	SignalPoolName     string          `json:"signal_pool_name"`
	PromptTemplateName string          `json:"prompt_template_name"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Relations
	Account       AccountRecord        `json:"-" gorm:"foreignKey:AccountID"`
	RelatedOrders []RelatedOrderRecord `json:"related_orders" gorm:"foreignKey:TradeRecordID"`
}

// RelatedOrderRecord stores a bracket order attached to a trade
type RelatedOrderRecord struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	TradeRecordID uint            `json:"trade_record_id" gorm:"index;not null"`
	Type          OrderKind       `json:"type"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(30,10)"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:decimal(30,10)"`
}

// ToModel converts the record to its API representation
func (r TradeRecord) ToModel() Trade {
	trade := Trade{
		TradeID:            r.TradeID,
		TradeTime:          r.TradeTime,
		AccountID:          r.AccountID,
		AccountName:        r.Account.Name,
		Symbol:             r.Symbol,
		Side:               r.Side,
		Price:              r.Price,
		Quantity:           r.Quantity,
		Notional:           r.Notional,
		TriggerType:        r.TriggerType,
		SignalPoolID:       r.SignalPoolID,
		SignalPoolName:     r.SignalPoolName,
		PromptTemplateName: r.PromptTemplateName,
	}
	for _, o := range r.RelatedOrders {
		trade.RelatedOrders = append(trade.RelatedOrders, RelatedOrder{
			Type:     o.Type,
			Price:    o.Price,
			Quantity: o.Quantity,
		})
	}
	return trade
}
