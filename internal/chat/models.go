package chat

import (
	"time"

	"github.com/suPer8Hu/gemini-chat/internal/ai"
	"gorm.io/datatypes"
)

type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusEnded  SessionStatus = "ended"
)

const defaultTitle = "New Chat"

type Session struct {
	ID        string         `gorm:"type:varchar(26);primaryKey" json:"id"`
	UserID    uint64         `gorm:"index:idx_chat_session_user_updated,priority:1;not null" json:"userId"`
	Title     string         `gorm:"type:varchar(255)" json:"title"`
	Model     string         `gorm:"type:varchar(128);not null" json:"model"`
	Status    SessionStatus  `gorm:"type:varchar(16);not null" json:"status"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `gorm:"index:idx_chat_session_user_updated,priority:2" json:"updatedAt"`
}

func (Session) TableName() string { return "chat_sessions" }

// Message is one turn of a session. Rows are append-only.
type Message struct {
	ID        string    `gorm:"type:varchar(26);primaryKey" json:"id"`
	SessionID string    `gorm:"type:varchar(26);not null;index:idx_chat_msg_session_created,priority:1" json:"sessionId"`
	UserID    *uint64   `gorm:"index" json:"userId,omitempty"`
	Role      ai.Role   `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Tokens    *int      `json:"tokens,omitempty"`
	LatencyMs *int64    `json:"latencyMs,omitempty"`
	Error     *string   `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"index:idx_chat_msg_session_created,priority:2" json:"createdAt"`
}

func (Message) TableName() string { return "chat_messages" }
