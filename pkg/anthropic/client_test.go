package anthropic

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateMessage_NoAPIKey(t *testing.T) {
	c := NewClient("")

	_, err := c.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 64,
		Prompt:    "hello",
	})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("upstream said no")
	apiErr := &APIError{
		StatusCode: 429,
		RetryAfter: 30 * time.Second,
		Err:        inner,
	}

	if !errors.Is(apiErr, inner) {
		t.Error("APIError must unwrap to the inner error")
	}
	if apiErr.Error() != "upstream said no" {
		t.Errorf("Error() = %q", apiErr.Error())
	}

	var out *APIError
	wrapped := errors.Join(errors.New("outer"), apiErr)
	if !errors.As(wrapped, &out) {
		t.Fatal("APIError must be recoverable through errors.As")
	}
	if out.StatusCode != 429 || out.RetryAfter != 30*time.Second {
		t.Errorf("got %+v", out)
	}
}
