package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Professional struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Company       string    `json:"company"`
	CreatedAt     time.Time `json:"created_at"`
	Reviews       []Review  `json:"reviews,omitempty"`
	AverageRating float64   `json:"average_rating,omitempty"`
}

type Review struct {
	ID             int64     `json:"id"`
	ProfessionalID int64     `json:"professional_id"`
	Author         string    `json:"author"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}

type PhotoAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Photo struct {
	ID             int64            `json:"id"`
	ProfessionalID int64            `json:"professional_id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	ImageURL       string           `json:"image_url"`
	CreatedAt      time.Time        `json:"created_at"`
	Attributes     []PhotoAttribute `json:"attributes,omitempty"`
	Professional   *Professional    `json:"professional,omitempty"`
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           string    `json:"role"` // user or assistant
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type Conversation struct {
	ID             int64      `json:"id"`
	ProfessionalID int64      `json:"professional_id"`
	LastSummary    string     `json:"last_summary"`
	LastViewedAt   *time.Time `json:"last_viewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	HasNewMessages bool       `json:"has_new_messages"`
	Messages       []Message  `json:"messages,omitempty"`
}
