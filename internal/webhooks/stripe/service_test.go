package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripelib "github.com/stripe/stripe-go/v82"

	"github.com/copperspur/rodeo-backend/internal/reconcile"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
)

type stubVerifier struct {
	event stripelib.Event
	err   error
}

func (s *stubVerifier) VerifyWebhook([]byte, string) (stripelib.Event, error) {
	if s.err != nil {
		return stripelib.Event{}, s.err
	}
	return s.event, nil
}

type stubReconciler struct {
	notices []reconcile.PaymentNotice
	err     error
}

func (s *stubReconciler) Apply(_ context.Context, notice reconcile.PaymentNotice) error {
	if s.err != nil {
		return s.err
	}
	s.notices = append(s.notices, notice)
	return nil
}

type memoryIdempotencyStore struct {
	values map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: map[string]string{}}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", errors.New("redis: nil")
	}
	return value, nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, exists := m.values[key]; exists {
		return false, nil
	}
	m.values[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "rodeo:idemp:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func checkoutCompletedEvent(t *testing.T, recordID uuid.UUID, code string) stripelib.Event {
	t.Helper()
	session := map[string]any{
		"id":                  "cs_test_1",
		"client_reference_id": code,
		"payment_status":      "paid",
		"metadata": map[string]string{
			"kind":              "ticket",
			"record_id":         recordID.String(),
			"confirmation_code": code,
		},
		"payment_intent": map[string]any{"id": "pi_test_1"},
	}
	raw, err := json.Marshal(session)
	require.NoError(t, err)
	return stripelib.Event{
		ID:   "evt_test_1",
		Type: stripelib.EventTypeCheckoutSessionCompleted,
		Data: &stripelib.EventData{Raw: raw},
	}
}

func newGuard(t *testing.T) *IdempotencyGuard {
	t.Helper()
	guard, err := NewIdempotencyGuard(newMemoryIdempotencyStore(), time.Hour, "webhook:stripe")
	require.NoError(t, err)
	return guard
}

func TestProcessRejectsBadSignatureBeforeParsing(t *testing.T) {
	apply := &stubReconciler{}
	svc, err := NewService(&stubVerifier{err: errors.New("signature mismatch")}, apply, nil, nil)
	require.NoError(t, err)

	err = svc.Process(context.Background(), []byte("{}"), "t=1,v1=bad")
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	assert.Empty(t, apply.notices)
}

func TestProcessForwardsCompletedSession(t *testing.T) {
	recordID := uuid.New()
	apply := &stubReconciler{}
	svc, err := NewService(&stubVerifier{event: checkoutCompletedEvent(t, recordID, "TKT-1717243200-A7K2MQ")}, apply, newGuard(t), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), []byte("{}"), "sig"))

	require.Len(t, apply.notices, 1)
	notice := apply.notices[0]
	assert.Equal(t, enums.PaymentProviderStripe, notice.Provider)
	assert.Equal(t, "evt_test_1", notice.EventID)
	assert.Equal(t, enums.OrderKindTicket, notice.Kind)
	assert.Equal(t, recordID, notice.RecordID)
	assert.Equal(t, "TKT-1717243200-A7K2MQ", notice.ConfirmationCode)
	assert.Equal(t, "cs_test_1", notice.SessionID)
	assert.Equal(t, "pi_test_1", notice.TransactionID)
	assert.True(t, notice.Approved)
}

func TestProcessIgnoresOtherEventTypes(t *testing.T) {
	apply := &stubReconciler{}
	event := stripelib.Event{
		ID:   "evt_other",
		Type: stripelib.EventTypePaymentIntentCreated,
		Data: &stripelib.EventData{Raw: []byte("{}")},
	}
	svc, err := NewService(&stubVerifier{event: event}, apply, newGuard(t), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), []byte("{}"), "sig"))
	assert.Empty(t, apply.notices)
}

func TestProcessFastPathSkipsSecondDelivery(t *testing.T) {
	apply := &stubReconciler{}
	event := checkoutCompletedEvent(t, uuid.New(), "TKT-1717243200-B8L3NR")
	svc, err := NewService(&stubVerifier{event: event}, apply, newGuard(t), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), []byte("{}"), "sig"))
	require.NoError(t, svc.Process(context.Background(), []byte("{}"), "sig"))
	assert.Len(t, apply.notices, 1)
}

func TestProcessReleasesFastPathOnReconcileFailure(t *testing.T) {
	event := checkoutCompletedEvent(t, uuid.New(), "TKT-1717243200-C9M4PS")
	guard := newGuard(t)

	failing := &stubReconciler{err: errors.New("db unavailable")}
	svc, err := NewService(&stubVerifier{event: event}, failing, guard, nil)
	require.NoError(t, err)
	require.Error(t, svc.Process(context.Background(), []byte("{}"), "sig"))

	// Redelivery after the failure must reach the reconciler again.
	working := &stubReconciler{}
	svc, err = NewService(&stubVerifier{event: event}, working, guard, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), []byte("{}"), "sig"))
	assert.Len(t, working.notices, 1)
}

func TestProcessUnpaidSessionIsNotApproved(t *testing.T) {
	session := map[string]any{
		"id":             "cs_test_unpaid",
		"payment_status": "unpaid",
		"metadata":       map[string]string{"kind": "ticket", "confirmation_code": "TKT-1-AAAAAA"},
	}
	raw, err := json.Marshal(session)
	require.NoError(t, err)
	event := stripelib.Event{
		ID:   "evt_unpaid",
		Type: stripelib.EventTypeCheckoutSessionCompleted,
		Data: &stripelib.EventData{Raw: raw},
	}

	apply := &stubReconciler{}
	svc, err := NewService(&stubVerifier{event: event}, apply, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), []byte("{}"), "sig"))
	require.Len(t, apply.notices, 1)
	assert.False(t, apply.notices[0].Approved)
}
