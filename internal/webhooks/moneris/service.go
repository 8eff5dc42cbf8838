package moneriswebhook

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/copperspur/rodeo-backend/internal/reconcile"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/moneris"
)

// approvalCeiling is the first Moneris response code that means decline.
// Codes 0-49 are approvals; 50 and up are declines.
const approvalCeiling = 50

// Callback is the JSON body Moneris POSTs when a hosted checkout completes.
// The POST is unsigned, so nothing in it is trusted until the receipt is
// fetched back from Moneris over the authenticated request API.
type Callback struct {
	OrderNo      string `json:"order_no"`
	TxnNum       string `json:"txn_num"`
	ResponseCode string `json:"response_code"`
	Ticket       string `json:"ticket"`
}

type receiptFetcher interface {
	FetchReceipt(ctx context.Context, ticket string) (*moneris.Receipt, error)
}

type reconciler interface {
	Apply(ctx context.Context, notice reconcile.PaymentNotice) error
}

// Service authenticates Moneris checkout callbacks by querying the receipt
// back from Moneris, then forwards the result to the reconciler.
type Service struct {
	receipts receiptFetcher
	apply    reconciler
	logger   *logger.Logger
}

// NewService builds the Moneris webhook handler.
func NewService(receipts receiptFetcher, apply reconciler, logg *logger.Logger) (*Service, error) {
	if receipts == nil {
		return nil, fmt.Errorf("receipt fetcher required")
	}
	if apply == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &Service{receipts: receipts, apply: apply, logger: logg}, nil
}

// Process verifies one callback against the Moneris receipt API and
// reconciles the resulting notice.
func (s *Service) Process(ctx context.Context, callback Callback, payload []byte) error {
	ticket := strings.TrimSpace(callback.Ticket)
	if ticket == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "moneris callback missing ticket")
	}

	if s.logger != nil {
		ctx = s.logger.WithProvider(ctx, string(enums.PaymentProviderMoneris))
		if callback.OrderNo != "" {
			ctx = s.logger.WithOrderNo(ctx, callback.OrderNo)
		}
	}

	// The callback body is advisory only; the receipt is authoritative.
	receipt, err := s.receipts.FetchReceipt(ctx, ticket)
	if err != nil {
		return err
	}
	if receipt.OrderNo == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "moneris receipt carries no order number")
	}
	if callback.OrderNo != "" && callback.OrderNo != receipt.OrderNo {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "callback order number does not match receipt").
			WithDetails(map[string]any{"callback_order_no": callback.OrderNo})
	}

	eventID := receipt.TransactionNo
	if eventID == "" {
		eventID = ticket
	}

	notice := reconcile.PaymentNotice{
		Provider:      enums.PaymentProviderMoneris,
		EventID:       eventID,
		OrderNo:       receipt.OrderNo,
		SessionID:     ticket,
		TransactionID: receipt.TransactionNo,
		Approved:      approved(receipt),
		Payload:       payload,
	}
	return s.apply.Apply(ctx, notice)
}

func approved(receipt *moneris.Receipt) bool {
	if code, err := strconv.Atoi(strings.TrimSpace(receipt.ResponseCode)); err == nil {
		return code < approvalCeiling
	}
	return receipt.Approved
}
