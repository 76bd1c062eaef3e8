package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
)

// errStreamDone stops line reading at the [DONE] sentinel.
var errStreamDone = errors.New("stream done")

// RetryPolicy controls how often and how patiently a failed attempt is
// repeated. MaxRetries counts retries, so at most MaxRetries+1 attempts run.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Attempts returns the total number of attempts allowed.
func (p RetryPolicy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Delay returns the wait before the given 1-based attempt:
// zero for the first, then BaseDelay doubling on every retry.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return p.BaseDelay << (attempt - 2)
}

// StreamHandler receives every parsed event as it arrives.
type StreamHandler func(event StreamEvent)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client streams chat completions with retries and tool-call accumulation.
type Client struct {
	transport Transport
	model     string
	tools     []openai.ChatCompletionToolUnionParam
	policy    RetryPolicy
	observer  Observer
	sleep     Sleeper
	onRetry   func(attempt, max int, delay time.Duration, err error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTools sets the tools advertised on every request.
func WithTools(tools []openai.ChatCompletionToolUnionParam) ClientOption {
	return func(c *Client) { c.tools = tools }
}

// WithObserver reports live tool-call progress.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) { c.observer = o }
}

// WithSleeper replaces the backoff wait.
func WithSleeper(s Sleeper) ClientOption {
	return func(c *Client) { c.sleep = s }
}

// WithRetryNotice is called before every retry.
func WithRetryNotice(fn func(attempt, max int, delay time.Duration, err error)) ClientOption {
	return func(c *Client) { c.onRetry = fn }
}

// NewClient creates a client for model over transport.
func NewClient(transport Transport, model string, policy RetryPolicy, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		model:     model,
		tools:     DefaultTools(),
		policy:    policy,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// ChatStream sends messages and streams the reply to handler. Any transport
// or decode failure restarts the whole attempt after the backoff delay; the
// error of the last attempt is returned once the policy is exhausted. A
// successful attempt is never retried, even when it produced no output.
func (c *Client) ChatStream(ctx context.Context, messages []Message, handler StreamHandler) (*TurnResult, error) {
	req := ChatRequest{
		Model:    c.model,
		Messages: SanitizeHistory(messages),
		Tools:    c.tools,
	}
	log.Debug("Chat request: %d messages, ~%d tokens", len(req.Messages), EstimateMessagesTokens(req.Messages))

	attempts := c.policy.Attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if delay := c.policy.Delay(attempt); attempt > 1 {
			log.Warn("request failed: %v", lastErr)
			if c.onRetry != nil {
				c.onRetry(attempt-1, attempts-1, delay, lastErr)
			}
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		result, err := c.attempt(ctx, req, handler)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
	}

	log.Error("all %d attempts failed: %v", attempts, lastErr)
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, req ChatRequest, handler StreamHandler) (*TurnResult, error) {
	body, err := c.transport.Open(ctx, req)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	acc := NewAccumulator(c.observer)
	var content, reasoning strings.Builder

	err = ReadLines(ctx, body, func(line string) error {
		event, ok := ParseLine(line)
		if !ok {
			return nil
		}

		switch e := event.(type) {
		case ContentEvent:
			content.WriteString(e.Text)
		case ReasoningEvent:
			reasoning.WriteString(e.Text)
		case ToolCallFragment:
			acc.Add(e)
		case FinishEvent:
			log.Stream("finish", e.Reason)
			acc.SetFinishReason(e.Reason)
		case DoneEvent:
			log.Stream("done", "")
		}

		if handler != nil {
			handler(event)
		}
		if _, done := event.(DoneEvent); done {
			return errStreamDone
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStreamDone) {
		return nil, err
	}

	result := &TurnResult{
		Content:      content.String(),
		Reasoning:    reasoning.String(),
		FinishReason: acc.FinishReason(),
		Attempted:    acc.Attempted(),
	}
	result.ToolCalls = acc.Finalize()
	log.Response("turn", result.Content)
	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
