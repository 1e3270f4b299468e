package anthropic

import (
	"context"
	"errors"
	"strconv"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Client defines the hosted inference operations used by the dispatcher.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is our own request type for CreateMessage.
type MessageRequest struct {
	Model     string
	MaxTokens int64
	System    string
	Prompt    string
}

// MessageResponse is our own response type from CreateMessage.
type MessageResponse struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// APIError carries the HTTP status of a failed hosted call so callers can
// classify it (rate limit vs. server error vs. other).
type APIError struct {
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	return e.Err.Error()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ErrNoAPIKey is returned by CreateMessage when the client was built
// without a key.
var ErrNoAPIKey = eris.New("anthropic: no api key configured")

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
	hasKey bool
}

// NewClient creates a hosted client backed by the SDK. An empty key yields
// a client whose calls fail with ErrNoAPIKey, which the dispatcher absorbs
// into sample fallbacks.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
		hasKey: apiKey != "",
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if !c.hasKey {
		return nil, ErrNoAPIKey
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	return fromSDKMessage(msg), nil
}

// classify wraps SDK errors into APIError with status and retry-after when
// the upstream provided them.
func classify(err error) error {
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		out := &APIError{
			StatusCode: apierr.StatusCode,
			Err:        eris.Wrap(err, "anthropic: create message"),
		}
		if apierr.Response != nil {
			if ra := apierr.Response.Header.Get("retry-after"); ra != "" {
				if secs, perr := strconv.Atoi(ra); perr == nil {
					out.RetryAfter = time.Duration(secs) * time.Second
				}
			}
		}
		return out
	}
	return eris.Wrap(err, "anthropic: create message")
}

func fromSDKMessage(msg *sdk.Message) *MessageResponse {
	var text string
	for _, b := range msg.Content {
		if b.Type == "text" {
			text += b.Text
		}
	}

	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       text,
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}
