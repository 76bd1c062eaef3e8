package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/tidwall/sjson"

	"github.com/LikeEpieiKeia216/Friendev/internal/logging"
)

var (
	ErrRequestFailed = errors.New("API request failed")
	ErrStreamError   = errors.New("stream error")
	log              = logging.Get()
)

// ChatRequest is one streaming chat-completion request.
type ChatRequest struct {
	Model    string
	Messages []Message
	Tools    []openai.ChatCompletionToolUnionParam
}

// Transport opens the raw SSE body of a chat-completion request.
type Transport interface {
	Open(ctx context.Context, req ChatRequest) (io.ReadCloser, error)
}

// HTTPTransport posts to {baseURL}/chat/completions with bearer auth.
type HTTPTransport struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPTransport creates a transport. connectTimeout bounds dialing and
// requestTimeout bounds the whole request including the streamed body.
func NewHTTPTransport(baseURL, apiKey string, connectTimeout, requestTimeout time.Duration) *HTTPTransport {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &HTTPTransport{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: connectTimeout,
			},
		},
	}
}

// Open sends the request and returns the response body on HTTP 200.
func (t *HTTPTransport) Open(ctx context.Context, chatReq ChatRequest) (io.ReadCloser, error) {
	body, err := BuildRequestBody(chatReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	log.Debug("HTTP POST %s/chat/completions (model: %s, messages: %d, tools: %d)",
		t.baseURL, chatReq.Model, len(chatReq.Messages), len(chatReq.Tools))
	log.Request("chat", string(body))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	log.Debug("HTTP response status: %d", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		log.Response("error", string(respBody))
		return nil, fmt.Errorf("%w: %d - %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	return resp.Body, nil
}

// BuildRequestBody renders {model, messages, tools, stream: true}.
func BuildRequestBody(req ChatRequest) ([]byte, error) {
	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: toParamMessages(req.Messages),
		Tools:    req.Tools,
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return sjson.SetBytes(body, "stream", true)
}

func toParamMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		var p openai.ChatCompletionMessageParamUnion
		switch m.Role {
		case RoleSystem:
			p = openai.SystemMessage(m.Content)
		case RoleAssistant:
			p = openai.AssistantMessage(m.Content)
			p.OfAssistant.ToolCalls = toParamToolCalls(m.ToolCalls)
		case RoleTool:
			p = openai.ToolMessage(m.Content, m.ToolCallID)
		default:
			p = openai.UserMessage(m.Content)
		}
		out = append(out, p)
	}
	return out
}

func toParamToolCalls(calls []ToolCall) []openai.ChatCompletionMessageToolCallUnionParam {
	if len(calls) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(calls))
	for _, c := range calls {
		out = append(out, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: c.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      c.Function.Name,
					Arguments: c.Function.Arguments,
				},
			},
		})
	}
	return out
}
