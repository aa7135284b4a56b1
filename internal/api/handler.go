package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hearthlabs/hearth/internal/db"
	"github.com/hearthlabs/hearth/internal/llm"
	"github.com/hearthlabs/hearth/internal/metrics"
	"github.com/hearthlabs/hearth/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	db        *db.Database
	responder llm.Responder
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewHandler(database *db.Database, responder llm.Responder, logger *zap.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		db:        database,
		responder: responder,
		logger:    logger,
		metrics:   m,
	}
}

// Register wires every API route onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/contact/init", h.ContactInit)
	mux.HandleFunc("POST /api/contact/chat", h.ContactChat)
	mux.HandleFunc("GET /api/contact/latest", h.ContactLatest)
	mux.HandleFunc("GET /api/contact/by-professional", h.ContactByProfessional)
	mux.HandleFunc("GET /api/contact/conversations/{id}", h.ContactConversation)
	mux.HandleFunc("POST /api/contact/viewed", h.ContactMarkViewed)
	mux.HandleFunc("GET /api/professionals", h.ListProfessionals)
	mux.HandleFunc("GET /api/professionals/{id}", h.GetProfessional)
	mux.HandleFunc("GET /api/photos", h.ListPhotos)
	mux.HandleFunc("GET /api/photos/{id}", h.GetPhoto)
}

type ContactInitRequest struct {
	ProfessionalID int64  `json:"professional_id"`
	PhotoID        int64  `json:"photo_id,omitempty"`
	Message        string `json:"message"`
}

type ContactInitResponse struct {
	Conversation   *models.Conversation `json:"conversation"`
	Suggestions    []string             `json:"suggestions"`
	IsSufficient   bool                 `json:"is_sufficient"`
	ProjectSummary string               `json:"project_summary,omitempty"`
}

type ContactChatRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message"`
}

type ContactChatResponse struct {
	Message        *models.Message `json:"message"`
	Suggestions    []string        `json:"suggestions"`
	IsSufficient   bool            `json:"is_sufficient"`
	ProjectSummary string          `json:"project_summary,omitempty"`
}

type ContactMarkViewedRequest struct {
	ConversationID int64 `json:"conversation_id"`
}

type ConversationResponse struct {
	Conversation *models.Conversation `json:"conversation"`
}

// ContactInit starts a conversation with a professional: it asks the AI
// responder for the opening reply, then persists the conversation together
// with both seed messages in one transaction.
func (h *Handler) ContactInit(w http.ResponseWriter, r *http.Request) {
	var req ContactInitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProfessionalID == 0 || req.Message == "" {
		h.writeError(w, http.StatusBadRequest, "professional_id and message are required")
		return
	}

	pro, err := h.db.GetProfessional(req.ProfessionalID)
	if err != nil {
		h.serverError(w, r, "failed to load professional", err)
		return
	}
	if pro == nil {
		h.writeError(w, http.StatusNotFound, "Professional not found")
		return
	}

	var photo *models.Photo
	if req.PhotoID != 0 {
		photo, err = h.db.GetPhoto(req.PhotoID)
		if err != nil {
			h.serverError(w, r, "failed to load photo", err)
			return
		}
		if photo == nil {
			h.writeError(w, http.StatusNotFound, "Photo not found")
			return
		}
	}

	reply, err := h.respond(r, llm.Request{
		Professional: pro,
		Photo:        photo,
		Message:      req.Message,
	})
	if err != nil {
		h.serverError(w, r, "failed to generate reply", err)
		return
	}

	conv, err := h.db.CreateConversation(pro.ID, req.Message, reply.Response, reply.ProjectSummary)
	if err != nil {
		h.serverError(w, r, "failed to create conversation", err)
		return
	}

	h.writeJSON(w, ContactInitResponse{
		Conversation:   conv,
		Suggestions:    reply.Suggestions,
		IsSufficient:   reply.IsSufficient,
		ProjectSummary: reply.ProjectSummary,
	})
}

// ContactChat appends one user turn to an existing conversation and persists
// the assistant's reply plus any updated project summary.
func (h *Handler) ContactChat(w http.ResponseWriter, r *http.Request) {
	var req ContactChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ConversationID == 0 || req.Message == "" {
		h.writeError(w, http.StatusBadRequest, "conversation_id and message are required")
		return
	}

	conv, err := h.db.GetConversation(req.ConversationID)
	if err != nil {
		h.serverError(w, r, "failed to load conversation", err)
		return
	}
	if conv == nil {
		h.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	pro, err := h.db.GetProfessional(conv.ProfessionalID)
	if err != nil {
		h.serverError(w, r, "failed to load professional", err)
		return
	}
	if pro == nil {
		h.writeError(w, http.StatusNotFound, "Professional not found")
		return
	}

	reply, err := h.respond(r, llm.Request{
		Professional: pro,
		History:      conv.Messages,
		Message:      req.Message,
	})
	if err != nil {
		h.serverError(w, r, "failed to generate reply", err)
		return
	}

	if _, err := h.db.AddMessage(conv.ID, models.RoleUser, req.Message); err != nil {
		h.serverError(w, r, "failed to save user message", err)
		return
	}
	assistantMsg, err := h.db.AddMessage(conv.ID, models.RoleAssistant, reply.Response)
	if err != nil {
		h.serverError(w, r, "failed to save assistant message", err)
		return
	}
	if reply.ProjectSummary != "" {
		if err := h.db.UpdateConversationSummary(conv.ID, reply.ProjectSummary); err != nil {
			h.serverError(w, r, "failed to update summary", err)
			return
		}
	}

	h.writeJSON(w, ContactChatResponse{
		Message:        assistantMsg,
		Suggestions:    reply.Suggestions,
		IsSufficient:   reply.IsSufficient,
		ProjectSummary: reply.ProjectSummary,
	})
}

// ContactLatest returns the newest conversation for a professional, summary
// only, or null when none exists.
func (h *Handler) ContactLatest(w http.ResponseWriter, r *http.Request) {
	professionalID, err := strconv.ParseInt(r.URL.Query().Get("professional_id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "professional_id is required")
		return
	}

	conv, err := h.db.GetLatestConversation(professionalID)
	if err != nil {
		h.serverError(w, r, "failed to load latest conversation", err)
		return
	}
	h.writeJSON(w, ConversationResponse{Conversation: conv})
}

// ContactByProfessional returns the newest conversation for a professional
// with messages and the unread flag, or null when none exists.
func (h *Handler) ContactByProfessional(w http.ResponseWriter, r *http.Request) {
	professionalID, err := strconv.ParseInt(r.URL.Query().Get("professional_id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "professional_id is required")
		return
	}

	conv, err := h.db.GetLatestConversationWithMessages(professionalID)
	if err != nil {
		h.serverError(w, r, "failed to load conversation", err)
		return
	}
	h.writeJSON(w, ConversationResponse{Conversation: conv})
}

func (h *Handler) ContactConversation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	conv, err := h.db.GetConversation(id)
	if err != nil {
		h.serverError(w, r, "failed to load conversation", err)
		return
	}
	if conv == nil {
		h.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	h.writeJSON(w, ConversationResponse{Conversation: conv})
}

func (h *Handler) ContactMarkViewed(w http.ResponseWriter, r *http.Request) {
	var req ContactMarkViewedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ConversationID == 0 {
		h.writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	if err := h.db.MarkConversationViewed(req.ConversationID); err != nil {
		h.serverError(w, r, "failed to mark conversation viewed", err)
		return
	}
	h.writeJSON(w, map[string]bool{"success": true})
}

func (h *Handler) ListProfessionals(w http.ResponseWriter, r *http.Request) {
	professionals, err := h.db.ListProfessionals()
	if err != nil {
		h.serverError(w, r, "failed to list professionals", err)
		return
	}
	h.writeJSON(w, map[string]interface{}{"professionals": professionals})
}

func (h *Handler) GetProfessional(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid professional ID")
		return
	}

	pro, err := h.db.GetProfessional(id)
	if err != nil {
		h.serverError(w, r, "failed to load professional", err)
		return
	}
	if pro == nil {
		h.writeError(w, http.StatusNotFound, "Professional not found")
		return
	}
	h.writeJSON(w, map[string]interface{}{"professional": pro})
}

// ListPhotos treats every query parameter as an attribute filter; photos must
// match all of them.
func (h *Handler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	filters := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 && values[0] != "" {
			filters[name] = values[0]
		}
	}

	photos, err := h.db.ListPhotos(filters)
	if err != nil {
		h.serverError(w, r, "failed to list photos", err)
		return
	}
	h.writeJSON(w, map[string]interface{}{"photos": photos})
}

func (h *Handler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid photo ID")
		return
	}

	photo, err := h.db.GetPhoto(id)
	if err != nil {
		h.serverError(w, r, "failed to load photo", err)
		return
	}
	if photo == nil {
		h.writeError(w, http.StatusNotFound, "Photo not found")
		return
	}
	h.writeJSON(w, map[string]interface{}{"photo": photo})
}

func (h *Handler) respond(r *http.Request, req llm.Request) (*llm.Reply, error) {
	reply, err := h.responder.Respond(r.Context(), req)
	if err != nil {
		h.metrics.RecordLLMRequest("error")
		return nil, err
	}
	h.metrics.RecordLLMRequest("success")
	return reply, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// serverError logs the real cause and returns a fixed message so no internal
// detail reaches the client.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	h.writeError(w, http.StatusInternalServerError, "Internal server error")
}
