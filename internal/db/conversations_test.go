package db

import (
	"testing"

	"github.com/hearthlabs/hearth/internal/models"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func seedProfessional(t *testing.T, database *Database) *models.Professional {
	t.Helper()
	pro, err := database.InsertProfessional("Dana Reyes", "Reyes Interiors")
	if err != nil {
		t.Fatalf("seed professional: %v", err)
	}
	return pro
}

func mustExec(t *testing.T, database *Database, query string, args ...interface{}) {
	t.Helper()
	if _, err := database.db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func countRows(t *testing.T, database *Database, table string) int {
	t.Helper()
	var n int
	if err := database.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestCreateConversation(t *testing.T) {
	database := testDB(t)
	pro := seedProfessional(t, database)

	conv, err := database.CreateConversation(pro.ID, "I want a modern kitchen", "Great, tell me your budget", "Modern kitchen inquiry")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.ProfessionalID != pro.ID {
		t.Fatalf("professional_id = %d, want %d", conv.ProfessionalID, pro.ID)
	}
	if conv.LastSummary != "Modern kitchen inquiry" {
		t.Fatalf("last_summary = %q", conv.LastSummary)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(conv.Messages))
	}
	if conv.Messages[0].Role != models.RoleUser || conv.Messages[1].Role != models.RoleAssistant {
		t.Fatalf("roles = [%s, %s], want [user, assistant]", conv.Messages[0].Role, conv.Messages[1].Role)
	}
	if conv.Messages[0].Content != "I want a modern kitchen" {
		t.Fatalf("user message = %q", conv.Messages[0].Content)
	}

	reread, err := database.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if reread == nil || len(reread.Messages) != 2 {
		t.Fatalf("reread = %+v", reread)
	}
}

func TestCreateConversationWithoutSummary(t *testing.T) {
	database := testDB(t)
	pro := seedProfessional(t, database)

	conv, err := database.CreateConversation(pro.ID, "hello", "hi there", "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.LastSummary != "" {
		t.Fatalf("last_summary = %q, want empty", conv.LastSummary)
	}
}

func TestCreateConversationRollsBack(t *testing.T) {
	database := testDB(t)

	// No professional 999 exists, the FK rejects the first insert and the
	// whole transaction must vanish.
	if _, err := database.CreateConversation(999, "hello", "hi", ""); err == nil {
		t.Fatal("expected error for unknown professional")
	}
	if n := countRows(t, database, "conversations"); n != 0 {
		t.Fatalf("conversations = %d, want 0", n)
	}
	if n := countRows(t, database, "messages"); n != 0 {
		t.Fatalf("messages = %d, want 0", n)
	}
}

func TestAddMessageAppendOnlyOrdering(t *testing.T) {
	database := testDB(t)
	pro := seedProfessional(t, database)

	conv, err := database.CreateConversation(pro.ID, "first", "second", "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	msg, err := database.AddMessage(conv.ID, models.RoleUser, "third")
	if err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if msg.ID == 0 || msg.CreatedAt.IsZero() {
		t.Fatalf("message not read back from store: %+v", msg)
	}
	if _, err := database.AddMessage(conv.ID, models.RoleAssistant, "fourth"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	reread, err := database.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(reread.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(reread.Messages))
	}
	for i := 1; i < len(reread.Messages); i++ {
		prev, cur := reread.Messages[i-1], reread.Messages[i]
		if cur.CreatedAt.Before(prev.CreatedAt) {
			t.Fatalf("message %d created before its predecessor", i)
		}
		if cur.CreatedAt.Equal(prev.CreatedAt) && cur.ID < prev.ID {
			t.Fatalf("message %d out of insert order", i)
		}
	}
	if reread.Messages[3].Content != "fourth" {
		t.Fatalf("last message = %q", reread.Messages[3].Content)
	}
}

func TestAddMessageRejectsBadRole(t *testing.T) {
	database := testDB(t)
	pro := seedProfessional(t, database)

	conv, err := database.CreateConversation(pro.ID, "a", "b", "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if _, err := database.AddMessage(conv.ID, "system", "nope"); err == nil {
		t.Fatal("expected role CHECK violation")
	}
}

func TestGetConversationNotFound(t *testing.T) {
	database := testDB(t)

	conv, err := database.GetConversation(12345)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv != nil {
		t.Fatalf("conv = %+v, want nil", conv)
	}
}

func TestHasNewMessagesDerivation(t *testing.T) {
	database := testDB(t)
	pro := seedProfessional(t, database)

	mustExec(t, database, `
        INSERT INTO conversations (id, professional_id, last_viewed_at, created_at)
        VALUES (1, ?, '2024-01-01 10:00:00', '2024-01-01 09:00:00')`, pro.ID)
	mustExec(t, database, `
        INSERT INTO messages (conversation_id, role, content, created_at)
        VALUES (1, 'assistant', 'reply', '2024-01-01 10:00:01')`)

	conv, err := database.GetConversation(1)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if !conv.HasNewMessages {
		t.Fatal("has_new_messages = false, want true")
	}

	if err := database.MarkConversationViewed(1); err != nil {
		t.Fatalf("MarkConversationViewed: %v", err)
	}
	conv, err = database.GetConversation(1)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv.HasNewMessages {
		t.Fatal("has_new_messages = true after viewing")
	}
}

func TestHasNewMessagesNeverViewed(t *testing.T) {
	database := testDB(t)
	pro := seedProfessional(t, database)

	conv, err := database.CreateConversation(pro.ID, "q", "a", "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if !conv.HasNewMessages {
		t.Fatal("unviewed conversation with an assistant message must be unread")
	}
}

func TestUpdateConversationSummaryOverwrites(t *testing.T) {
	database := testDB(t)
	pro := seedProfessional(t, database)

	conv, err := database.CreateConversation(pro.ID, "q", "a", "first summary")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if err := database.UpdateConversationSummary(conv.ID, "second summary"); err != nil {
		t.Fatalf("UpdateConversationSummary: %v", err)
	}

	reread, err := database.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if reread.LastSummary != "second summary" {
		t.Fatalf("last_summary = %q, want %q", reread.LastSummary, "second summary")
	}
}

func TestSilentNoOpWrites(t *testing.T) {
	database := testDB(t)

	if err := database.UpdateConversationSummary(999, "nobody home"); err != nil {
		t.Fatalf("UpdateConversationSummary on unknown id: %v", err)
	}
	if err := database.MarkConversationViewed(999); err != nil {
		t.Fatalf("MarkConversationViewed on unknown id: %v", err)
	}
}

func TestMarkConversationViewedIdempotent(t *testing.T) {
	database := testDB(t)
	pro := seedProfessional(t, database)

	conv, err := database.CreateConversation(pro.ID, "q", "a", "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	if err := database.MarkConversationViewed(conv.ID); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	first, err := database.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}

	if err := database.MarkConversationViewed(conv.ID); err != nil {
		t.Fatalf("second mark: %v", err)
	}
	second, err := database.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}

	if first.LastViewedAt == nil || second.LastViewedAt == nil {
		t.Fatal("last_viewed_at not set")
	}
	if second.LastViewedAt.Before(*first.LastViewedAt) {
		t.Fatal("second mark moved last_viewed_at backwards")
	}
}

func TestGetLatestConversation(t *testing.T) {
	database := testDB(t)
	pro := seedProfessional(t, database)

	none, err := database.GetLatestConversation(pro.ID)
	if err != nil {
		t.Fatalf("GetLatestConversation: %v", err)
	}
	if none != nil {
		t.Fatalf("latest = %+v, want nil", none)
	}

	mustExec(t, database, `
        INSERT INTO conversations (id, professional_id, last_summary, created_at)
        VALUES (1, ?, 'older', '2024-01-01 09:00:00'),
               (2, ?, 'newer', '2024-01-02 09:00:00')`, pro.ID, pro.ID)
	mustExec(t, database, `
        INSERT INTO messages (conversation_id, role, content, created_at)
        VALUES (2, 'user', 'hello', '2024-01-02 09:00:00')`)

	latest, err := database.GetLatestConversation(pro.ID)
	if err != nil {
		t.Fatalf("GetLatestConversation: %v", err)
	}
	if latest.ID != 2 || latest.LastSummary != "newer" {
		t.Fatalf("latest = %+v", latest)
	}
	if len(latest.Messages) != 0 {
		t.Fatalf("latest should not hydrate messages, got %d", len(latest.Messages))
	}

	hydrated, err := database.GetLatestConversationWithMessages(pro.ID)
	if err != nil {
		t.Fatalf("GetLatestConversationWithMessages: %v", err)
	}
	if hydrated.ID != 2 || len(hydrated.Messages) != 1 {
		t.Fatalf("hydrated = %+v", hydrated)
	}
}
