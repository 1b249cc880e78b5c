package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// DefaultModel is a small fast model suited to field extraction.
	DefaultModel = "llama-3.1-8b-instant"

	// DefaultBaseURL points the OpenAI-compatible client at Groq.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	extractionMaxTokens   = 500
	extractionTemperature = 0.7
)

const namePrompt = `Extract ONLY the first name and last name from this text.
Return a JSON object with "first_name" and "last_name" keys.
If you cannot find clear names, return empty strings.

Examples:
"I am John Smith" -> {"first_name": "John", "last_name": "Smith"}
"My name is Sarah" -> {"first_name": "Sarah", "last_name": ""}
"Hello there" -> {"first_name": "", "last_name": ""}

Text: %q`

const insurancePrompt = `Extract insurance details from the message.
Return JSON with keys: "carrier", "member_id", "group_number".
Use empty string "" if missing.

Examples:
"Blue Cross Blue Shield, member ID 123456789, group 987654" -> {"carrier": "Blue Cross Blue Shield", "member_id": "123456789", "group_number": "987654"}
"Aetna insurance" -> {"carrier": "Aetna", "member_id": "", "group_number": ""}

Extract from: %q`

// chatClient is the slice of the OpenAI client the extractor needs; tests
// substitute a fake.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMExtractor implements Capability on top of an OpenAI-compatible chat
// completion endpoint.
type LLMExtractor struct {
	client chatClient
	model  string
	logger *zap.Logger
}

// NewLLMExtractor builds an extractor against the configured endpoint. An
// empty baseURL targets Groq; an empty model selects DefaultModel.
func NewLLMExtractor(apiKey, baseURL, model string, logger *zap.Logger) *LLMExtractor {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg.BaseURL = baseURL

	if model == "" {
		model = DefaultModel
	}

	return &LLMExtractor{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

func (e *LLMExtractor) ExtractNames(ctx context.Context, text string) (string, string, bool, error) {
	var out struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := e.completeJSON(ctx, fmt.Sprintf(namePrompt, text), &out); err != nil {
		return "", "", false, err
	}

	first := strings.TrimSpace(out.FirstName)
	last := strings.TrimSpace(out.LastName)
	if len(first) < 2 || IsStopWord(first) {
		return "", "", false, nil
	}
	return first, last, true, nil
}

func (e *LLMExtractor) ExtractInsurance(ctx context.Context, text string) (Insurance, error) {
	var out struct {
		Carrier     string `json:"carrier"`
		MemberID    string `json:"member_id"`
		GroupNumber string `json:"group_number"`
	}
	if err := e.completeJSON(ctx, fmt.Sprintf(insurancePrompt, text), &out); err != nil {
		return Insurance{}, err
	}

	return Insurance{
		Carrier:     strings.TrimSpace(out.Carrier),
		MemberID:    strings.TrimSpace(out.MemberID),
		GroupNumber: strings.TrimSpace(out.GroupNumber),
	}, nil
}

// completeJSON runs one chat completion and unmarshals the JSON object in the
// reply. Models wrap JSON in prose or code fences, so the object is cut out
// by brace positions rather than parsed whole.
func (e *LLMExtractor) completeJSON(ctx context.Context, prompt string, out any) error {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		MaxTokens:   extractionMaxTokens,
		Temperature: extractionTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion: empty response")
	}

	content := resp.Choices[0].Message.Content
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("chat completion: no JSON object in %q", content)
	}

	if err := json.Unmarshal([]byte(content[start:end+1]), out); err != nil {
		return fmt.Errorf("decode extraction payload: %w", err)
	}
	return nil
}
