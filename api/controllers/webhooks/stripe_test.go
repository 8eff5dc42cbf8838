package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	moneriswebhook "github.com/copperspur/rodeo-backend/internal/webhooks/moneris"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStripeProcessor struct {
	calls     int
	payload   []byte
	sigHeader string
	err       error
}

func (s *stubStripeProcessor) Process(ctx context.Context, payload []byte, sigHeader string) error {
	s.calls++
	s.payload = payload
	s.sigHeader = sigHeader
	return s.err
}

type stubMonerisProcessor struct {
	calls    int
	callback moneriswebhook.Callback
	payload  []byte
	err      error
}

func (s *stubMonerisProcessor) Process(ctx context.Context, callback moneriswebhook.Callback, payload []byte) error {
	s.calls++
	s.callback = callback
	s.payload = payload
	return s.err
}

func TestStripeWebhookPassesSignatureHeader(t *testing.T) {
	proc := &stubStripeProcessor{}
	handler := StripeWebhook(proc, nil)

	body := []byte(`{"id":"evt_123","type":"checkout.session.completed"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, proc.calls)
	assert.Equal(t, body, proc.payload)
	assert.Equal(t, "t=1,v1=abc", proc.sigHeader)
	assert.JSONEq(t, `{"data":{"status":"received"}}`, rec.Body.String())
}

func TestStripeWebhookSurfacesProcessingError(t *testing.T) {
	proc := &stubStripeProcessor{err: pkgerrors.New(pkgerrors.CodeDependency, "provider unavailable")}
	handler := StripeWebhook(proc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 1, proc.calls)
}

func TestStripeWebhookRejectsInvalidSignature(t *testing.T) {
	proc := &stubStripeProcessor{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature")}
	handler := StripeWebhook(proc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMonerisWebhookDecodesCallback(t *testing.T) {
	proc := &stubMonerisProcessor{}
	handler := MonerisWebhook(proc, nil)

	callback := moneriswebhook.Callback{
		OrderNo:      "TKT-1717243200-A7K2MQ",
		TxnNum:       "660117-0_11",
		ResponseCode: "027",
		Ticket:       "ticket-abc",
	}
	body, err := json.Marshal(callback)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/moneris", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, proc.calls)
	assert.Equal(t, callback.OrderNo, proc.callback.OrderNo)
	assert.Equal(t, callback.TxnNum, proc.callback.TxnNum)
	assert.Equal(t, body, proc.payload)
}

func TestMonerisWebhookRejectsMalformedBody(t *testing.T) {
	proc := &stubMonerisProcessor{}
	handler := MonerisWebhook(proc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/moneris", bytes.NewReader([]byte("not-json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, proc.calls)
}
