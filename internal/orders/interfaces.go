package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/copperspur/rodeo-backend/pkg/db/models"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	"github.com/copperspur/rodeo-backend/pkg/pagination"
)

// Repository defines persistence operations for the order record tables.
// State transitions are conditional updates; callers learn whether they won
// the transition from the returned bool, never by read-then-write.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTicketOrder(ctx context.Context, order *models.TicketOrder) (*models.TicketOrder, error)
	CreateMerchOrder(ctx context.Context, order *models.MerchOrder) (*models.MerchOrder, error)
	CreateBarCredit(ctx context.Context, credit *models.BarCredit) (*models.BarCredit, error)

	FindByCode(ctx context.Context, kind enums.OrderKind, code string) (*Record, error)
	FindByID(ctx context.Context, kind enums.OrderKind, id uuid.UUID) (*Record, error)
	FindBySession(ctx context.Context, kind enums.OrderKind, sessionID string) (*Record, error)

	ConfirmTicketOrderIfPending(ctx context.Context, id uuid.UUID, txnID *string, at time.Time) (bool, error)
	MarkMerchOrderPaidIfPending(ctx context.Context, id uuid.UUID, txnID *string, at time.Time) (bool, error)
	ConfirmBarCreditIfPending(ctx context.Context, id uuid.UUID, txnID *string, at time.Time) (bool, error)

	MarkTicketScannedIfUnscanned(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	DecrementBarCredit(ctx context.Context, id uuid.UUID) (bool, error)

	UpdateTicketOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateMerchOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateBarCredit(ctx context.Context, id uuid.UUID, updates map[string]any) error

	ListOrders(ctx context.Context, kind enums.OrderKind, params pagination.Params, filters OrderFilters) (*OrderList, error)
	FindByEmail(ctx context.Context, email string, limit int) ([]OrderSummary, error)
}
