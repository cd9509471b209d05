package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	copilotTokenURL = "https://api.github.com/copilot_internal/v2/token"
	copilotBaseURL  = "https://api.githubcopilot.com"

	// DefaultModel is used when the config names no Copilot model.
	DefaultModel = "gpt-4o"
)

// CopilotClient speaks to the GitHub Copilot chat API through an
// OpenAI-compatible client.
type CopilotClient struct {
	client     openai.Client
	model      string
	httpClient *http.Client
}

// tokenResponse is the shape of GitHub's token exchange reply.
type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// NewCopilotClient resolves a GitHub token and trades it for the
// Copilot bearer token the chat endpoint wants.
func NewCopilotClient(model string) (*CopilotClient, error) {
	if model == "" {
		model = DefaultModel
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	// Load GitHub token
	githubToken, err := LoadGitHubToken()
	if err != nil {
		return nil, fmt.Errorf("loading GitHub token: %w", err)
	}

	// Exchange for Copilot bearer token
	bearerToken, err := exchangeToken(httpClient, githubToken)
	if err != nil {
		return nil, fmt.Errorf("exchanging token: %w", err)
	}

	// Create OpenAI client configured for Copilot
	client := openai.NewClient(
		option.WithBaseURL(copilotBaseURL),
		option.WithAPIKey(bearerToken),
		option.WithHeader("Editor-Version", "Coparent/1.0"),
		option.WithHeader("Editor-Plugin-Version", "Coparent/1.0"),
		option.WithHeader("Copilot-Integration-Id", "vscode-chat"),
	)

	return &CopilotClient{
		client:     client,
		model:      model,
		httpClient: httpClient,
	}, nil
}

// exchangeToken trades a GitHub OAuth token for the short-lived
// Copilot bearer token.
func exchangeToken(httpClient *http.Client, githubToken string) (string, error) {
	req, err := http.NewRequest("GET", copilotTokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+githubToken)
	req.Header.Set("User-Agent", "Coparent/1.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token exchange failed (status %d): %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return tokenResp.Token, nil
}

// Chat runs one completion round and returns the raw reply text.
func (c *CopilotClient) Chat(ctx context.Context, messages []Message) (string, error) {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			openaiMessages[i] = openai.SystemMessage(msg.Content)
		case "user":
			openaiMessages[i] = openai.UserMessage(msg.Content)
		case "assistant":
			openaiMessages[i] = openai.AssistantMessage(msg.Content)
		default:
			openaiMessages[i] = openai.UserMessage(msg.Content)
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: openaiMessages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// ChatJSON runs Chat and decodes the reply into result, tolerating
// fenced or prose-wrapped JSON.
func (c *CopilotClient) ChatJSON(ctx context.Context, messages []Message, result any) error {
	content, err := c.Chat(ctx, messages)
	if err != nil {
		return err
	}

	jsonContent := extractJSON(content)

	if err := json.Unmarshal([]byte(jsonContent), result); err != nil {
		return fmt.Errorf("parsing JSON response: %w (content: %s)", err, content)
	}

	return nil
}

// extractJSON digs the JSON payload out of a model reply that may wrap
// it in a code fence or surrounding prose. It prefers a ```json fence,
// then any fence, then the first bracket-balanced object or array.
func extractJSON(s string) string {
	jsonStart := "```json"
	if idx := strings.Index(s, jsonStart); idx != -1 {
		start := idx + len(jsonStart)
		for start < len(s) && (s[start] == '\n' || s[start] == '\r') {
			start++
		}
		if end := strings.Index(s[start:], "```"); end != -1 {
			result := s[start : start+end]
			for len(result) > 0 && (result[len(result)-1] == '\n' || result[len(result)-1] == '\r') {
				result = result[:len(result)-1]
			}
			return result
		}
	}

	codeStart := "```"
	if idx := strings.Index(s, codeStart); idx != -1 {
		start := idx + len(codeStart)
		for start < len(s) && (s[start] == '\n' || s[start] == '\r') {
			start++
		}
		if end := strings.Index(s[start:], "```"); end != -1 {
			result := s[start : start+end]
			for len(result) > 0 && (result[len(result)-1] == '\n' || result[len(result)-1] == '\r') {
				result = result[:len(result)-1]
			}
			return result
		}
	}

	// Bare JSON: take the first bracket-balanced span.
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			depth := 0
			for j := i; j < len(s); j++ {
				switch s[j] {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
					if depth == 0 {
						return s[i : j+1]
					}
				}
			}
		}
	}

	return s
}

