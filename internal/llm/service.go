package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hearthlabs/hearth/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Responder produces the next assistant turn for a contact conversation.
// Handlers depend on this interface so tests can substitute a stub.
type Responder interface {
	Respond(ctx context.Context, req Request) (*Reply, error)
}

// Request carries the optional photo and professional context plus the
// ordered message history and the user's current message.
type Request struct {
	Photo        *models.Photo
	Professional *models.Professional
	History      []models.Message
	Message      string
}

type Reply struct {
	Response       string   `json:"response"`
	Suggestions    []string `json:"suggestions"`
	IsSufficient   bool     `json:"is_sufficient"`
	ProjectSummary string   `json:"project_summary,omitempty"`
}

type Service struct {
	llm llms.LLM
}

func New(baseURL, token, model string) (*Service, error) {
	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &Service{llm: llm}, nil
}

const systemPrompt = `You are a home-design consultation assistant helping a
homeowner describe their project to a professional. Ask for the details the
professional will need (rooms, style, budget, timeline) and keep replies short
and friendly.

Respond with a JSON object:
{
    "response": "Your natural language reply to the homeowner...",
    "suggestions": ["short follow-up question the homeowner could tap", ...],
    "is_sufficient": whether enough project detail has been gathered,
    "project_summary": "one-paragraph running summary of the project so far"
}`

func (s *Service) Respond(ctx context.Context, req Request) (*Reply, error) {
	prompt := buildPrompt(req)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	completion, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate completion: %w", err)
	}

	return parseReply(completion), nil
}

func buildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)

	if req.Professional != nil {
		sb.WriteString(fmt.Sprintf("\n\nThe homeowner is contacting %s", req.Professional.Name))
		if req.Professional.Company != "" {
			sb.WriteString(fmt.Sprintf(" of %s", req.Professional.Company))
		}
		sb.WriteString(".\n")
	}
	if req.Photo != nil {
		sb.WriteString(fmt.Sprintf("\nThey are asking about the photo %q", req.Photo.Title))
		if req.Photo.Description != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", req.Photo.Description))
		}
		for _, attr := range req.Photo.Attributes {
			sb.WriteString(fmt.Sprintf("\n- %s: %s", attr.Name, attr.Value))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nConversation history:\n")
	for _, msg := range req.History {
		sb.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
	}
	sb.WriteString(fmt.Sprintf("\nCurrent message:\nuser: %s\n\nResponse:", req.Message))
	return sb.String()
}

// parseReply decodes the model's JSON reply. Models occasionally ignore the
// format, so anything that does not parse is treated as a plain-text reply.
func parseReply(completion string) *Reply {
	cleaned := strings.TrimSpace(completion)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var reply Reply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil || reply.Response == "" {
		return &Reply{Response: strings.TrimSpace(completion), Suggestions: []string{}}
	}
	if reply.Suggestions == nil {
		reply.Suggestions = []string{}
	}
	return &reply
}
