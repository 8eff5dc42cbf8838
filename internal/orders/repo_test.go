package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/copperspur/rodeo-backend/pkg/db/models"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	"github.com/copperspur/rodeo-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	// a single pooled connection keeps the in-memory schema alive for the test
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	ticketOrders := `
CREATE TABLE IF NOT EXISTS ticket_orders (
  id TEXT PRIMARY KEY,
  confirmation_code TEXT NOT NULL UNIQUE,
  ticket_type TEXT NOT NULL,
  event_slug TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  provider TEXT NOT NULL,
  provider_session TEXT,
  provider_txn_id TEXT,
  currency TEXT NOT NULL DEFAULT 'CAD',
  quantity INTEGER NOT NULL DEFAULT 1,
  subtotal NUMERIC NOT NULL,
  tax NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  refund_amount NUMERIC,
  scanned INTEGER NOT NULL DEFAULT 0,
  scanned_at DATETIME,
  rfid_tags TEXT,
  confirmed_at DATETIME,
  email_sent_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	merchOrders := `
CREATE TABLE IF NOT EXISTS merch_orders (
  id TEXT PRIMARY KEY,
  confirmation_code TEXT NOT NULL UNIQUE,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  provider TEXT NOT NULL,
  provider_session TEXT,
  provider_txn_id TEXT,
  currency TEXT NOT NULL DEFAULT 'CAD',
  subtotal NUMERIC NOT NULL,
  shipping NUMERIC NOT NULL,
  tax NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  refund_amount NUMERIC,
  shipping_address TEXT,
  shipment_id TEXT,
  tracking_number TEXT,
  shipped_at DATETIME,
  paid_at DATETIME,
  email_sent_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	merchOrderItems := `
CREATE TABLE IF NOT EXISTS merch_order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  line_total NUMERIC NOT NULL,
  created_at DATETIME
);`
	barCredits := `
CREATE TABLE IF NOT EXISTS bar_credits (
  id TEXT PRIMARY KEY,
  confirmation_code TEXT NOT NULL UNIQUE,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  provider TEXT NOT NULL,
  provider_session TEXT,
  provider_txn_id TEXT,
  currency TEXT NOT NULL DEFAULT 'CAD',
  credits INTEGER NOT NULL,
  remaining_credits INTEGER NOT NULL DEFAULT 0,
  unit_price NUMERIC NOT NULL,
  subtotal NUMERIC NOT NULL,
  tax NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  refund_amount NUMERIC,
  confirmed_at DATETIME,
  email_sent_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`

	for _, stmt := range []string{ticketOrders, merchOrders, merchOrderItems, barCredits} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedTicketOrder(t *testing.T, db *gorm.DB, code string, status enums.TicketOrderStatus) *models.TicketOrder {
	t.Helper()
	order := &models.TicketOrder{
		ID:               uuid.New(),
		ConfirmationCode: code,
		TicketType:       enums.TicketTypeIndividual,
		EventSlug:        "bull-riding-finals",
		CustomerName:     "Reba Holt",
		CustomerEmail:    "reba@example.com",
		Status:           status,
		Provider:         enums.PaymentProviderStripe,
		Currency:         enums.CurrencyCAD,
		Quantity:         1,
		Subtotal:         decimal.RequireFromString("75.00"),
		Tax:              decimal.RequireFromString("9.75"),
		Total:            decimal.RequireFromString("84.75"),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func seedBarCredit(t *testing.T, db *gorm.DB, code string, status enums.BarCreditStatus, credits, remaining int) *models.BarCredit {
	t.Helper()
	credit := &models.BarCredit{
		ID:               uuid.New(),
		ConfirmationCode: code,
		CustomerName:     "Dale Whitmore",
		CustomerEmail:    "dale@example.com",
		Status:           status,
		Provider:         enums.PaymentProviderMoneris,
		Currency:         enums.CurrencyCAD,
		Credits:          credits,
		RemainingCredits: remaining,
		UnitPrice:        decimal.RequireFromString("7.00"),
		Subtotal:         decimal.RequireFromString("35.00"),
		Tax:              decimal.RequireFromString("4.55"),
		Total:            decimal.RequireFromString("39.55"),
	}
	require.NoError(t, db.Create(credit).Error)
	return credit
}

func seedMerchOrder(t *testing.T, db *gorm.DB, code string, status enums.MerchOrderStatus) *models.MerchOrder {
	t.Helper()
	order := &models.MerchOrder{
		ID:               uuid.New(),
		ConfirmationCode: code,
		CustomerName:     "June Calder",
		CustomerEmail:    "june@example.com",
		Status:           status,
		Provider:         enums.PaymentProviderStripe,
		Currency:         enums.CurrencyCAD,
		Subtotal:         decimal.RequireFromString("40.00"),
		Shipping:         decimal.RequireFromString("12.00"),
		Tax:              decimal.Zero,
		Total:            decimal.RequireFromString("52.00"),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestConfirmTicketOrderIfPendingWinsOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedTicketOrder(t, db, "TKT-20250601-AAA111", enums.TicketOrderStatusPending)
	txn := "pi_123"

	won, err := repo.ConfirmTicketOrderIfPending(ctx, order.ID, &txn, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, won)

	again, err := repo.ConfirmTicketOrderIfPending(ctx, order.ID, &txn, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, again)

	record, err := repo.FindByID(ctx, enums.OrderKindTicket, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TicketOrderStatusConfirmed, record.Ticket.Status)
	require.NotNil(t, record.Ticket.ProviderTxnID)
	assert.Equal(t, "pi_123", *record.Ticket.ProviderTxnID)
	assert.NotNil(t, record.Ticket.ConfirmedAt)
}

func TestConfirmTicketOrderDoesNotRegressCancelled(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedTicketOrder(t, db, "TKT-20250601-AAA112", enums.TicketOrderStatusCancelled)

	won, err := repo.ConfirmTicketOrderIfPending(ctx, order.ID, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, won)

	record, err := repo.FindByID(ctx, enums.OrderKindTicket, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TicketOrderStatusCancelled, record.Ticket.Status)
}

func TestMarkMerchOrderPaidIfPending(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedMerchOrder(t, db, "MER-20250601-BBB222", enums.MerchOrderStatusPending)

	won, err := repo.MarkMerchOrderPaidIfPending(ctx, order.ID, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, won)

	again, err := repo.MarkMerchOrderPaidIfPending(ctx, order.ID, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, again)

	record, err := repo.FindByID(ctx, enums.OrderKindMerch, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.MerchOrderStatusPaid, record.Merch.Status)
	assert.NotNil(t, record.Merch.PaidAt)
}

func TestConfirmBarCreditSetsRemaining(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	credit := seedBarCredit(t, db, "BAR-20250601-CCC333", enums.BarCreditStatusPending, 5, 0)

	won, err := repo.ConfirmBarCreditIfPending(ctx, credit.ID, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, won)

	record, err := repo.FindByID(ctx, enums.OrderKindBarCredit, credit.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BarCreditStatusConfirmed, record.BarCredit.Status)
	assert.Equal(t, 5, record.BarCredit.RemainingCredits)
}

func TestMarkTicketScannedFlipsOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedTicketOrder(t, db, "TKT-20250601-DDD444", enums.TicketOrderStatusConfirmed)

	won, err := repo.MarkTicketScannedIfUnscanned(ctx, order.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, won)

	again, err := repo.MarkTicketScannedIfUnscanned(ctx, order.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, again)

	record, err := repo.FindByID(ctx, enums.OrderKindTicket, order.ID)
	require.NoError(t, err)
	assert.True(t, record.Ticket.Scanned)
	assert.NotNil(t, record.Ticket.ScannedAt)
}

func TestMarkTicketScannedRejectsPending(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedTicketOrder(t, db, "TKT-20250601-EEE555", enums.TicketOrderStatusPending)

	won, err := repo.MarkTicketScannedIfUnscanned(ctx, order.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, won)
}

func TestDecrementBarCreditDepletesExactly(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	credit := seedBarCredit(t, db, "BAR-20250601-FFF666", enums.BarCreditStatusConfirmed, 2, 2)

	for i := 0; i < 2; i++ {
		won, err := repo.DecrementBarCredit(ctx, credit.ID)
		require.NoError(t, err)
		assert.True(t, won, "pour %d should succeed", i+1)
	}

	won, err := repo.DecrementBarCredit(ctx, credit.ID)
	require.NoError(t, err)
	assert.False(t, won, "third pour must lose")

	record, err := repo.FindByID(ctx, enums.OrderKindBarCredit, credit.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, record.BarCredit.RemainingCredits)
	assert.Equal(t, enums.BarCreditStatusDepleted, record.BarCredit.Status)
}

func TestListOrdersPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		order := seedTicketOrder(t, db, fmt.Sprintf("TKT-20250601-PAG%03d", i), enums.TicketOrderStatusConfirmed)
		require.NoError(t, db.Model(&models.TicketOrder{}).Where("id = ?", order.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	first, err := repo.ListOrders(ctx, enums.OrderKindTicket, pagination.Params{Limit: 2}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, "TKT-20250601-PAG002", first.Orders[0].ConfirmationCode)

	second, err := repo.ListOrders(ctx, enums.OrderKindTicket, pagination.Params{Limit: 2, Cursor: first.NextCursor}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, "TKT-20250601-PAG000", second.Orders[0].ConfirmationCode)
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedTicketOrder(t, db, "TKT-20250601-STA001", enums.TicketOrderStatusPending)
	seedTicketOrder(t, db, "TKT-20250601-STA002", enums.TicketOrderStatusConfirmed)

	list, err := repo.ListOrders(ctx, enums.OrderKindTicket, pagination.Params{}, OrderFilters{Status: "confirmed"})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, "TKT-20250601-STA002", list.Orders[0].ConfirmationCode)
}

func TestFindByEmailSpansKinds(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ticket := seedTicketOrder(t, db, "TKT-20250601-EML001", enums.TicketOrderStatusConfirmed)
	require.NoError(t, db.Model(&models.TicketOrder{}).Where("id = ?", ticket.ID).
		Update("customer_email", "shared@example.com").Error)
	credit := seedBarCredit(t, db, "BAR-20250601-EML002", enums.BarCreditStatusConfirmed, 3, 3)
	require.NoError(t, db.Model(&models.BarCredit{}).Where("id = ?", credit.ID).
		Update("customer_email", "shared@example.com").Error)

	summaries, err := repo.FindByEmail(ctx, "shared@example.com", 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
}

func TestFindByCodeNotFound(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByCode(context.Background(), enums.OrderKindTicket, "TKT-20250601-NOPE")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
