// Package queue publishes work for out-of-band consumers: the generation
// pipeline and the notification sender.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GenerationTask asks the pipeline to run a story from Stage onward.
type GenerationTask struct {
	TaskID         uuid.UUID `json:"task_id"`
	StoryID        uuid.UUID `json:"story_id"`
	UserID         uuid.UUID `json:"user_id"`
	Stage          string    `json:"stage"`
	ImageURL       string    `json:"image_url,omitempty"`
	CharacterName  string    `json:"character_name"`
	CharacterType  string    `json:"character_type"`
	CharacterStyle string    `json:"character_style,omitempty"`
	SpecialAbility string    `json:"special_ability,omitempty"`
	StoryWorld     string    `json:"story_world"`
	AdventureType  string    `json:"adventure_type"`
	RequestedAt    time.Time `json:"requested_at"`
}

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	TemplateOTPCode = "otp_code"
	TemplateVerify  = "verify_email"
)

// Notification is a message for the sender worker. Data carries template values.
type Notification struct {
	Channel   string            `json:"channel"`
	Recipient string            `json:"recipient"`
	Template  string            `json:"template"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Publisher is implemented by RabbitPublisher and LogPublisher.
type Publisher interface {
	PublishGeneration(ctx context.Context, task GenerationTask) error
	PublishNotification(ctx context.Context, n Notification) error
	Close() error
}
