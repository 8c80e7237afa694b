// Package whatsapp is a thin client for the WhatsApp Cloud (Graph) API and
// the decoder for its webhook payloads.
package whatsapp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// DefaultBaseURL is the Graph API version the bot was built against.
const DefaultBaseURL = "https://graph.facebook.com/v20.0"

// TokenSource returns the current bearer token. It is called once per
// request so a rotated token takes effect without a restart.
type TokenSource func() string

// EnvToken reads the token from the named environment variable on every call.
func EnvToken(key string) TokenSource {
	return func() string { return strings.TrimSpace(os.Getenv(key)) }
}

// StaticToken always returns tok.
func StaticToken(tok string) TokenSource {
	return func() string { return tok }
}

// Config configures a Client.
type Config struct {
	BaseURL       string
	PhoneNumberID string
	Timeout       time.Duration
	Token         TokenSource
}

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	Status    int
	Code      int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("graph api: status %d", e.Status)
	}
	return fmt.Sprintf("graph api: status %d: %s (code %d)", e.Status, e.Message, e.Code)
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Client calls the Graph API. Every call is attempted exactly once.
type Client struct {
	http          *resty.Client
	phoneNumberID string
	token         TokenSource
	logger        *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Token == nil {
		cfg.Token = EnvToken("WHATS_TOKEN")
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{
		http:          rc,
		phoneNumberID: cfg.PhoneNumberID,
		token:         cfg.Token,
		logger:        logger,
	}
}

func (c *Client) request(ctx context.Context) (*resty.Request, string) {
	reqID := uuid.NewString()
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.token()).
		SetHeader("X-Request-ID", reqID).
		SetError(&errorEnvelope{})
	return req, reqID
}

func (c *Client) check(op, reqID string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn("Graph API call failed", "op", op, "request_id", reqID, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode(), RequestID: reqID}
	if env, ok := resp.Error().(*errorEnvelope); ok && env != nil {
		apiErr.Message = env.Error.Message
		apiErr.Code = env.Error.Code
	}
	c.logger.Warn("Graph API returned an error", "op", op, "request_id", reqID, "status", apiErr.Status, "message", apiErr.Message)
	return fmt.Errorf("%s: %w", op, apiErr)
}

type textBody struct {
	Body string `json:"body"`
}

type mediaRef struct {
	ID string `json:"id"`
}

type outboundMessage struct {
	MessagingProduct string    `json:"messaging_product"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             *textBody `json:"text,omitempty"`
	Sticker          *mediaRef `json:"sticker,omitempty"`
}

func (c *Client) send(ctx context.Context, op string, msg outboundMessage) error {
	msg.MessagingProduct = "whatsapp"
	req, reqID := c.request(ctx)
	resp, err := req.SetBody(msg).Post("/" + c.phoneNumberID + "/messages")
	return c.check(op, reqID, resp, err)
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	return c.send(ctx, "send text", outboundMessage{To: to, Type: "text", Text: &textBody{Body: body}})
}

// SendSticker sends a previously uploaded sticker.
func (c *Client) SendSticker(ctx context.Context, to, stickerID string) error {
	return c.send(ctx, "send sticker", outboundMessage{To: to, Type: "sticker", Sticker: &mediaRef{ID: stickerID}})
}

// MediaURL resolves a media id to its short-lived download URL.
func (c *Client) MediaURL(ctx context.Context, mediaID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	req, reqID := c.request(ctx)
	resp, err := req.SetResult(&out).Get("/" + mediaID)
	if err := c.check("media metadata", reqID, resp, err); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("media metadata: no url for media %s", mediaID)
	}
	return out.URL, nil
}

// Download fetches a media URL with the bearer token.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, reqID := c.request(ctx)
	resp, err := req.SetHeader("Accept", "*/*").Get(url)
	if err := c.check("media download", reqID, resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// UploadMedia uploads data as a multipart file and returns the media id.
func (c *Client) UploadMedia(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	var out mediaRef
	req, reqID := c.request(ctx)
	resp, err := req.
		SetMultipartFormData(map[string]string{
			"messaging_product": "whatsapp",
			"type":              mimeType,
		}).
		SetMultipartField("file", filename, mimeType, bytes.NewReader(data)).
		SetResult(&out).
		Post("/" + c.phoneNumberID + "/media")
	if err := c.check("media upload", reqID, resp, err); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("media upload: response carried no id")
	}
	return out.ID, nil
}
