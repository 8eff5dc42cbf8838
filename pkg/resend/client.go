package resend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/copperspur/rodeo-backend/pkg/config"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
)

const apiURL = "https://api.resend.com/emails"

var errAPIKeyRequired = errors.New("resend api key is required")

// Client sends transactional mail through the Resend REST API.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	defaultFrom string
	endpoint    string
	logger      *logger.Logger
}

// Attachment is an inline file carried with a message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is one outbound email.
type Message struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type apiAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type apiMessage struct {
	From        string          `json:"from"`
	To          []string        `json:"to"`
	Subject     string          `json:"subject"`
	HTML        string          `json:"html"`
	Attachments []apiAttachment `json:"attachments,omitempty"`
}

type apiResponse struct {
	ID string `json:"id"`
}

// NewClient validates the key and prepares the transport.
func NewClient(ctx context.Context, cfg config.ResendConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	if logg != nil {
		logg.Info(ctx, "resend client initialized")
	}

	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		apiKey:      apiKey,
		defaultFrom: strings.TrimSpace(cfg.DefaultFrom),
		endpoint:    apiURL,
		logger:      logg,
	}, nil
}

// Send delivers the message and returns the provider message id.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if len(msg.To) == 0 {
		return "", errors.New("at least one recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return "", errors.New("subject is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = c.defaultFrom
	}
	if from == "" {
		return "", errors.New("from address is required")
	}

	body := apiMessage{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}
	for _, att := range msg.Attachments {
		body.Attachments = append(body.Attachments, apiAttachment{
			Filename: att.Filename,
			Content:  base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling resend")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read resend response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("resend returned status %d", resp.StatusCode))
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode resend response: %w", err)
	}
	return decoded.ID, nil
}
