package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hearthlabs/hearth/internal/models"
)

// CreateConversation seeds a new conversation atomically: the conversation
// row, the opening user message and the assistant reply either all commit or
// none do. The committed conversation is read back fully hydrated.
func (db *Database) CreateConversation(professionalID int64, userMessage, assistantReply, summary string) (*models.Conversation, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var convID int64
	query := `
        INSERT INTO conversations (professional_id, last_summary, created_at)
        VALUES (?, NULLIF(?, ''), CURRENT_TIMESTAMP)
        RETURNING id`
	if err := tx.QueryRow(query, professionalID, summary).Scan(&convID); err != nil {
		return nil, err
	}

	insert := `
        INSERT INTO messages (conversation_id, role, content, created_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)`
	if _, err := tx.Exec(insert, convID, models.RoleUser, userMessage); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(insert, convID, models.RoleAssistant, assistantReply); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	conv, err := db.GetConversation(convID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %d not readable after create", convID)
	}
	return conv, nil
}

// AddMessage appends a single message. The returned id and timestamp are the
// values the store actually persisted, read back in the same round trip.
func (db *Database) AddMessage(conversationID int64, role, content string) (*models.Message, error) {
	query := `
        INSERT INTO messages (conversation_id, role, content, created_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        RETURNING id, created_at`

	msg := &models.Message{ConversationID: conversationID, Role: role, Content: content}
	if err := db.db.QueryRow(query, conversationID, role, content).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetConversation returns the conversation with its messages in creation
// order, or nil when no such conversation exists.
func (db *Database) GetConversation(id int64) (*models.Conversation, error) {
	query := `
        SELECT id, professional_id, last_summary, last_viewed_at, created_at
        FROM conversations
        WHERE id = ?`

	conv, err := scanConversation(db.db.QueryRow(query, id))
	if conv == nil || err != nil {
		return nil, err
	}
	return db.hydrateConversation(conv)
}

// GetLatestConversation returns the newest conversation for a professional
// without loading its messages, or nil when the professional has none.
func (db *Database) GetLatestConversation(professionalID int64) (*models.Conversation, error) {
	query := `
        SELECT id, professional_id, last_summary, last_viewed_at, created_at
        FROM conversations
        WHERE professional_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT 1`

	return scanConversation(db.db.QueryRow(query, professionalID))
}

// GetLatestConversationWithMessages is GetLatestConversation plus message
// hydration and the unread flag.
func (db *Database) GetLatestConversationWithMessages(professionalID int64) (*models.Conversation, error) {
	conv, err := db.GetLatestConversation(professionalID)
	if conv == nil || err != nil {
		return nil, err
	}
	return db.hydrateConversation(conv)
}

// UpdateConversationSummary overwrites the rolling summary, last writer wins.
// Updating an id that does not exist is a silent no-op.
func (db *Database) UpdateConversationSummary(id int64, summary string) error {
	_, err := db.db.Exec("UPDATE conversations SET last_summary = NULLIF(?, '') WHERE id = ?", summary, id)
	return err
}

// MarkConversationViewed advances last_viewed_at to now. Idempotent; marking
// an id that does not exist is a silent no-op.
func (db *Database) MarkConversationViewed(id int64) error {
	_, err := db.db.Exec("UPDATE conversations SET last_viewed_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	return err
}

func (db *Database) hydrateConversation(conv *models.Conversation) (*models.Conversation, error) {
	messages, err := db.getMessages(conv.ID)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages
	conv.HasNewMessages = hasNewMessages(messages, conv.LastViewedAt)
	return conv, nil
}

func (db *Database) getMessages(conversationID int64) ([]models.Message, error) {
	query := `
        SELECT id, conversation_id, role, content, created_at
        FROM messages
        WHERE conversation_id = ?
        ORDER BY created_at ASC, id ASC`

	rows, err := db.db.Query(query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// scanConversation maps a conversation row into the domain model, treating
// sql.ErrNoRows as a nil result rather than an error.
func scanConversation(row *sql.Row) (*models.Conversation, error) {
	var (
		conv     models.Conversation
		summary  sql.NullString
		viewedAt sql.NullTime
	)
	err := row.Scan(&conv.ID, &conv.ProfessionalID, &summary, &viewedAt, &conv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	conv.LastSummary = summary.String
	if viewedAt.Valid {
		t := viewedAt.Time
		conv.LastViewedAt = &t
	}
	return &conv, nil
}

// hasNewMessages reports whether any assistant message postdates the last
// viewed timestamp. A conversation that was never viewed counts every
// assistant message as new.
func hasNewMessages(messages []models.Message, lastViewedAt *time.Time) bool {
	for _, msg := range messages {
		if msg.Role != models.RoleAssistant {
			continue
		}
		if lastViewedAt == nil || msg.CreatedAt.After(*lastViewedAt) {
			return true
		}
	}
	return false
}
