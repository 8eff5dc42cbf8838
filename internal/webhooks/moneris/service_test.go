package moneriswebhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperspur/rodeo-backend/internal/reconcile"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/moneris"
)

type stubReceipts struct {
	receipt    *moneris.Receipt
	err        error
	lastTicket string
}

func (s *stubReceipts) FetchReceipt(_ context.Context, ticket string) (*moneris.Receipt, error) {
	s.lastTicket = ticket
	if s.err != nil {
		return nil, s.err
	}
	return s.receipt, nil
}

type stubReconciler struct {
	notices []reconcile.PaymentNotice
}

func (s *stubReconciler) Apply(_ context.Context, notice reconcile.PaymentNotice) error {
	s.notices = append(s.notices, notice)
	return nil
}

func approvedReceipt(orderNo string) *moneris.Receipt {
	return &moneris.Receipt{
		OrderNo:       orderNo,
		TransactionNo: "660012345",
		Approved:      true,
		ResponseCode:  "027",
		TxnTotal:      "79.10",
	}
}

func TestProcessVerifiesAgainstReceipt(t *testing.T) {
	receipts := &stubReceipts{receipt: approvedReceipt("BAR-1717243200-E3P6RV")}
	apply := &stubReconciler{}
	svc, err := NewService(receipts, apply, nil)
	require.NoError(t, err)

	callback := Callback{
		OrderNo:      "BAR-1717243200-E3P6RV",
		TxnNum:       "660012345",
		ResponseCode: "027",
		Ticket:       "ot-abc123",
	}
	require.NoError(t, svc.Process(context.Background(), callback, []byte(`{}`)))

	assert.Equal(t, "ot-abc123", receipts.lastTicket)
	require.Len(t, apply.notices, 1)
	notice := apply.notices[0]
	assert.Equal(t, enums.PaymentProviderMoneris, notice.Provider)
	assert.Equal(t, "660012345", notice.EventID)
	assert.Equal(t, "BAR-1717243200-E3P6RV", notice.OrderNo)
	assert.Equal(t, "660012345", notice.TransactionID)
	assert.True(t, notice.Approved)
}

func TestProcessTrustsReceiptOverCallback(t *testing.T) {
	// Forged callback claims approval; the receipt says declined.
	receipts := &stubReceipts{receipt: &moneris.Receipt{
		OrderNo:       "TKT-1717243200-A7K2MQ",
		TransactionNo: "660099999",
		Approved:      false,
		ResponseCode:  "481",
	}}
	apply := &stubReconciler{}
	svc, err := NewService(receipts, apply, nil)
	require.NoError(t, err)

	callback := Callback{OrderNo: "TKT-1717243200-A7K2MQ", ResponseCode: "001", Ticket: "ot-forged"}
	require.NoError(t, svc.Process(context.Background(), callback, nil))

	require.Len(t, apply.notices, 1)
	assert.False(t, apply.notices[0].Approved)
}

func TestProcessRejectsOrderNumberMismatch(t *testing.T) {
	receipts := &stubReceipts{receipt: approvedReceipt("TKT-1717243200-A7K2MQ")}
	apply := &stubReconciler{}
	svc, err := NewService(receipts, apply, nil)
	require.NoError(t, err)

	callback := Callback{OrderNo: "TKT-1717243200-ZZZZZZ", Ticket: "ot-abc123"}
	err = svc.Process(context.Background(), callback, nil)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	assert.Empty(t, apply.notices)
}

func TestProcessRequiresTicket(t *testing.T) {
	svc, err := NewService(&stubReceipts{}, &stubReconciler{}, nil)
	require.NoError(t, err)

	err = svc.Process(context.Background(), Callback{OrderNo: "TKT-1-AAAAAA"}, nil)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestResponseCodeBoundary(t *testing.T) {
	cases := []struct {
		code     string
		approved bool
	}{
		{"000", true},
		{"027", true},
		{"049", true},
		{"050", false},
		{"481", false},
		{"null", false},
	}
	for _, tc := range cases {
		receipt := &moneris.Receipt{ResponseCode: tc.code, Approved: false}
		assert.Equal(t, tc.approved, approved(receipt), "response code %s", tc.code)
	}
}
