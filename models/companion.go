// models/companion.go - AI companion memory
package models

import (
	"time"

	"gorm.io/datatypes"
)

// SentimentEntry is one classified user message.
type SentimentEntry struct {
	Sentiment string    `json:"sentiment"`
	At        time.Time `json:"at"`
}

// Recollection is a declarative sentence the user shared about themselves.
type Recollection struct {
	Text string `json:"text"`
	Date string `json:"date"`
}

// VibeReading is the vibe of a single message.
type VibeReading struct {
	EnergyLevel        string    `json:"energy_level"`
	EmojiUsage         string    `json:"emoji_usage"`
	Enthusiasm         string    `json:"enthusiasm"`
	ResponseLength     string    `json:"response_length"`
	CommunicationStyle string    `json:"communication_style"`
	At                 time.Time `json:"at"`
}

// CompanionMemory is the per-user rolling memory of the companion.
type CompanionMemory struct {
	UserID             string                               `json:"user_id" gorm:"primaryKey;size:128"`
	TotalMessages      int64                                `json:"total_messages" gorm:"not null;default:0"`
	Persona            string                               `json:"persona" gorm:"size:32"`
	Sentiments         datatypes.JSONType[[]SentimentEntry] `json:"sentiments"`
	WordFrequency      datatypes.JSONType[map[string]int]   `json:"word_frequency"`
	Recollections      datatypes.JSONType[[]Recollection]   `json:"recollections"`
	RecentVibes        datatypes.JSONType[[]VibeReading]    `json:"recent_vibes"`
	EnergyLevel        string                               `json:"energy_level" gorm:"size:16"`
	CommunicationStyle string                               `json:"communication_style" gorm:"size:16"`
	EmojiUsage         string                               `json:"emoji_usage" gorm:"size:16"`
	ResponseLength     string                               `json:"response_length" gorm:"size:16"`
	Enthusiasm         string                               `json:"enthusiasm" gorm:"size:16"`
	CreatedAt          time.Time                            `json:"created_at"`
	UpdatedAt          time.Time                            `json:"updated_at"`
}

// CompanionMessage is one turn of the conversation history.
type CompanionMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"not null;size:128;index"`
	Role      string    `json:"role" gorm:"not null;size:16"`
	Content   string    `json:"content" gorm:"type:text"`
	Style     string    `json:"style,omitempty" gorm:"size:32"`
	Fallback  bool      `json:"fallback" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
}

func (CompanionMemory) TableName() string {
	return "companion_memories"
}

func (CompanionMessage) TableName() string {
	return "companion_messages"
}
