package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"photo-counter/internal/domain/entity"
	"photo-counter/internal/domain/port"
)

const countPrompt = "Count the number of %s in this image. Respond with only the number."

// RemoteCounter считает объекты через OpenAI-совместимый chat completions API.
type RemoteCounter struct {
	Endpoint string
	Model    string
	Strict   bool
	HTTP     *http.Client
}

func NewRemoteCounter(endpoint, model string, strict bool) *RemoteCounter {
	return &RemoteCounter{Endpoint: endpoint, Model: model, Strict: strict, HTTP: http.DefaultClient}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// RequiresCredential удалённому детектору нужен ключ из настроек
func (c *RemoteCounter) RequiresCredential() bool { return true }

// CountObjects отправляет фото и метку объектов, разбирает число из ответа.
func (c *RemoteCounter) CountObjects(ctx context.Context, req port.CountRequest) (int, error) {
	if req.APIKey == "" {
		return 0, &entity.DetectionError{Kind: entity.MissingCredential}
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("detector request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("detector post %s: %s: %s", c.Endpoint, resp.Status, bytes.TrimSpace(msg))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode detector response: %w", err)
	}
	if len(out.Choices) == 0 {
		return 0, errors.New("detector response has no choices")
	}

	n, err := ParseCount(out.Choices[0].Message.Content, c.Strict)
	if err != nil {
		return 0, &entity.DetectionError{Kind: entity.RequestFailed, Err: err}
	}
	return n, nil
}

func (c *RemoteCounter) buildRequest(req port.CountRequest) chatRequest {
	dataURL := "data:" + http.DetectContentType(req.Image) + ";base64," + base64.StdEncoding.EncodeToString(req.Image)
	return chatRequest{
		Model: c.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: fmt.Sprintf(countPrompt, req.ObjectType)},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		}},
		MaxTokens: 16,
	}
}

var _ port.ObjectCounter = (*RemoteCounter)(nil)
