package moneris

import (
	"bytes"
	"context"
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

const (
	qaEnv   = "qa"
	prodEnv = "prod"

	actionPreload = "preload"
	actionReceipt = "receipt"
)

var (
	errStoreIDRequired    = errors.New("moneris store id is required")
	errAPITokenRequired   = errors.New("moneris api token is required")
	errCheckoutIDRequired = errors.New("moneris checkout id is required")
	errInvalidMonerisEnv  = fmt.Errorf("moneris environment must be %q or %q", qaEnv, prodEnv)
)

var requestURLs = map[string]string{
	qaEnv:   "https://gatewayt.moneris.com/chkt/request/request.php",
	prodEnv: "https://gateway.moneris.com/chkt/request/request.php",
}

var displayURLs = map[string]string{
	qaEnv:   "https://gatewayt.moneris.com/chkt/display/chkt_v1.php",
	prodEnv: "https://gateway.moneris.com/chkt/display/chkt_v1.php",
}

// Client talks to the Moneris Checkout request API. Moneris has no Go SDK so
// the wire format is spoken directly.
type Client struct {
	httpClient  *http.Client
	storeID     string
	apiToken    string
	checkoutID  string
	environment string
	requestURL  string
	displayURL  string
	logger      *logger.Logger
}

// PreloadRequest opens a hosted checkout ticket for the given order.
type PreloadRequest struct {
	OrderNo  string
	TxnTotal string
	Email    string
	Language string
}

// PreloadResponse carries the ticket used to redirect the shopper.
type PreloadResponse struct {
	Ticket      string
	RedirectURL string
}

// Receipt is the authoritative transaction record fetched back from Moneris.
type Receipt struct {
	OrderNo       string
	TransactionNo string
	Approved      bool
	ResponseCode  string
	TxnTotal      string
}

type apiRequest struct {
	StoreID     string `json:"store_id"`
	APIToken    string `json:"api_token"`
	CheckoutID  string `json:"checkout_id,omitempty"`
	TxnTotal    string `json:"txn_total,omitempty"`
	Environment string `json:"environment"`
	Action      string `json:"action"`
	OrderNo     string `json:"order_no,omitempty"`
	Ticket      string `json:"ticket,omitempty"`
	Language    string `json:"language,omitempty"`
	ContactInfo *struct {
		Email string `json:"email,omitempty"`
	} `json:"contact_details,omitempty"`
}

type apiResponse struct {
	Response struct {
		Success string `json:"success"`
		Error   any    `json:"error,omitempty"`
		Ticket  string `json:"ticket,omitempty"`
		Receipt struct {
			Result string `json:"result,omitempty"`
			CC     struct {
				OrderNo       string `json:"order_no,omitempty"`
				TransactionNo string `json:"transaction_no,omitempty"`
				ResponseCode  string `json:"response_code,omitempty"`
				Amount        string `json:"amount,omitempty"`
			} `json:"cc,omitempty"`
		} `json:"receipt,omitempty"`
	} `json:"response"`
}

// NewClient validates credentials and prepares the HTTP transport.
func NewClient(ctx context.Context, cfg config.MonerisConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment)
	if err != nil {
		return nil, err
	}

	storeID := strings.TrimSpace(cfg.StoreID)
	if storeID == "" {
		return nil, errStoreIDRequired
	}
	apiToken := strings.TrimSpace(cfg.APIToken)
	if apiToken == "" {
		return nil, errAPITokenRequired
	}
	checkoutID := strings.TrimSpace(cfg.CheckoutID)
	if checkoutID == "" {
		return nil, errCheckoutIDRequired
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("moneris client initialized (%s)", env))
	}

	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		storeID:     storeID,
		apiToken:    apiToken,
		checkoutID:  checkoutID,
		environment: env,
		requestURL:  requestURLs[env],
		displayURL:  displayURLs[env],
		logger:      logg,
	}, nil
}

// Environment reports the normalized Moneris environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Preload opens a hosted checkout ticket and returns the shopper redirect URL.
func (c *Client) Preload(ctx context.Context, req PreloadRequest) (*PreloadResponse, error) {
	if strings.TrimSpace(req.OrderNo) == "" {
		return nil, errors.New("order_no is required")
	}
	if strings.TrimSpace(req.TxnTotal) == "" {
		return nil, errors.New("txn_total is required")
	}

	body := apiRequest{
		StoreID:     c.storeID,
		APIToken:    c.apiToken,
		CheckoutID:  c.checkoutID,
		TxnTotal:    req.TxnTotal,
		Environment: c.environment,
		Action:      actionPreload,
		OrderNo:     req.OrderNo,
		Language:    req.Language,
	}
	if req.Email != "" {
		body.ContactInfo = &struct {
			Email string `json:"email,omitempty"`
		}{Email: req.Email}
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(resp.Response.Success, "true") || resp.Response.Ticket == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "moneris preload rejected").
			WithDetails(map[string]any{"order_no": req.OrderNo})
	}

	return &PreloadResponse{
		Ticket:      resp.Response.Ticket,
		RedirectURL: fmt.Sprintf("%s?ticket=%s", c.displayURL, resp.Response.Ticket),
	}, nil
}

// FetchReceipt pulls the authoritative receipt for a completed ticket. The
// gateway posts unsigned callbacks, so confirmation always comes from here.
func (c *Client) FetchReceipt(ctx context.Context, ticket string) (*Receipt, error) {
	if strings.TrimSpace(ticket) == "" {
		return nil, errors.New("ticket is required")
	}

	body := apiRequest{
		StoreID:     c.storeID,
		APIToken:    c.apiToken,
		Environment: c.environment,
		Action:      actionReceipt,
		Ticket:      ticket,
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(resp.Response.Success, "true") {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "moneris receipt lookup failed").
			WithDetails(map[string]any{"ticket": ticket})
	}

	receipt := resp.Response.Receipt
	return &Receipt{
		OrderNo:       receipt.CC.OrderNo,
		TransactionNo: receipt.CC.TransactionNo,
		Approved:      strings.EqualFold(receipt.Result, "a"),
		ResponseCode:  receipt.CC.ResponseCode,
		TxnTotal:      receipt.CC.Amount,
	}, nil
}

func (c *Client) post(ctx context.Context, body apiRequest) (*apiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal moneris request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build moneris request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling moneris")
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read moneris response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("moneris returned status %d", httpResp.StatusCode))
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode moneris response: %w", err)
	}
	return &decoded, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = qaEnv
	}
	switch env {
	case qaEnv, prodEnv:
		return env, nil
	default:
		return "", errInvalidMonerisEnv
	}
}
