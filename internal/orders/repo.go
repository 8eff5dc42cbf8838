package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/copperspur/rodeo-backend/pkg/db/models"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	"github.com/copperspur/rodeo-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTicketOrder(ctx context.Context, order *models.TicketOrder) (*models.TicketOrder, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateMerchOrder(ctx context.Context, order *models.MerchOrder) (*models.MerchOrder, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateBarCredit(ctx context.Context, credit *models.BarCredit) (*models.BarCredit, error) {
	if err := r.db.WithContext(ctx).Create(credit).Error; err != nil {
		return nil, err
	}
	return credit, nil
}

func (r *repository) FindByCode(ctx context.Context, kind enums.OrderKind, code string) (*Record, error) {
	return r.findOne(ctx, kind, "confirmation_code = ?", code)
}

func (r *repository) FindByID(ctx context.Context, kind enums.OrderKind, id uuid.UUID) (*Record, error) {
	return r.findOne(ctx, kind, "id = ?", id)
}

func (r *repository) FindBySession(ctx context.Context, kind enums.OrderKind, sessionID string) (*Record, error) {
	return r.findOne(ctx, kind, "provider_session = ?", sessionID)
}

func (r *repository) findOne(ctx context.Context, kind enums.OrderKind, query string, arg any) (*Record, error) {
	switch kind {
	case enums.OrderKindTicket:
		var order models.TicketOrder
		if err := r.db.WithContext(ctx).Where(query, arg).First(&order).Error; err != nil {
			return nil, err
		}
		return &Record{Kind: kind, Ticket: &order}, nil
	case enums.OrderKindMerch:
		var order models.MerchOrder
		if err := r.db.WithContext(ctx).Preload("Items").Where(query, arg).First(&order).Error; err != nil {
			return nil, err
		}
		return &Record{Kind: kind, Merch: &order}, nil
	case enums.OrderKindBarCredit:
		var credit models.BarCredit
		if err := r.db.WithContext(ctx).Where(query, arg).First(&credit).Error; err != nil {
			return nil, err
		}
		return &Record{Kind: kind, BarCredit: &credit}, nil
	default:
		return nil, fmt.Errorf("unknown order kind %q", kind)
	}
}

func (r *repository) ConfirmTicketOrderIfPending(ctx context.Context, id uuid.UUID, txnID *string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":       enums.TicketOrderStatusConfirmed,
		"confirmed_at": at,
	}
	if txnID != nil {
		updates["provider_txn_id"] = *txnID
	}
	res := r.db.WithContext(ctx).Model(&models.TicketOrder{}).
		Where("id = ? AND status = ?", id, enums.TicketOrderStatusPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) MarkMerchOrderPaidIfPending(ctx context.Context, id uuid.UUID, txnID *string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":  enums.MerchOrderStatusPaid,
		"paid_at": at,
	}
	if txnID != nil {
		updates["provider_txn_id"] = *txnID
	}
	res := r.db.WithContext(ctx).Model(&models.MerchOrder{}).
		Where("id = ? AND status = ?", id, enums.MerchOrderStatusPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) ConfirmBarCreditIfPending(ctx context.Context, id uuid.UUID, txnID *string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":            enums.BarCreditStatusConfirmed,
		"confirmed_at":      at,
		"remaining_credits": gorm.Expr("credits"),
	}
	if txnID != nil {
		updates["provider_txn_id"] = *txnID
	}
	res := r.db.WithContext(ctx).Model(&models.BarCredit{}).
		Where("id = ? AND status = ?", id, enums.BarCreditStatusPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) MarkTicketScannedIfUnscanned(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.TicketOrder{}).
		Where("id = ? AND status = ? AND scanned = ?", id, enums.TicketOrderStatusConfirmed, false).
		Updates(map[string]any{
			"scanned":    true,
			"scanned_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) DecrementBarCredit(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.BarCredit{}).
		Where("id = ? AND status = ? AND remaining_credits > 0", id, enums.BarCreditStatusConfirmed).
		Updates(map[string]any{
			"remaining_credits": gorm.Expr("remaining_credits - 1"),
			"status":            gorm.Expr("CASE WHEN remaining_credits = 1 THEN 'depleted' ELSE status END"),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) UpdateTicketOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.TicketOrder{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) UpdateMerchOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.MerchOrder{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) UpdateBarCredit(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.BarCredit{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) ListOrders(ctx context.Context, kind enums.OrderKind, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx)
	switch kind {
	case enums.OrderKindTicket:
		query = query.Model(&models.TicketOrder{})
	case enums.OrderKindMerch:
		query = query.Model(&models.MerchOrder{})
	case enums.OrderKindBarCredit:
		query = query.Model(&models.BarCredit{})
	default:
		return nil, fmt.Errorf("unknown order kind %q", kind)
	}

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Email != "" {
		query = query.Where("customer_email = ?", filters.Email)
	}
	if filters.EventSlug != "" && kind == enums.OrderKindTicket {
		query = query.Where("event_slug = ?", filters.EventSlug)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	if cursor != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	query = query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit))

	list := &OrderList{Orders: []OrderSummary{}}
	appendPage := func(records []*Record) {
		hasMore := len(records) > limit
		if hasMore {
			records = records[:limit]
		}
		for _, record := range records {
			list.Orders = append(list.Orders, summarize(record))
		}
		if hasMore {
			last := records[len(records)-1]
			list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.summaryCreatedAt(),
				ID:        last.ID(),
			})
		}
	}

	switch kind {
	case enums.OrderKindTicket:
		var rows []models.TicketOrder
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		records := make([]*Record, 0, len(rows))
		for i := range rows {
			records = append(records, &Record{Kind: kind, Ticket: &rows[i]})
		}
		appendPage(records)
	case enums.OrderKindMerch:
		var rows []models.MerchOrder
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		records := make([]*Record, 0, len(rows))
		for i := range rows {
			records = append(records, &Record{Kind: kind, Merch: &rows[i]})
		}
		appendPage(records)
	case enums.OrderKindBarCredit:
		var rows []models.BarCredit
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		records := make([]*Record, 0, len(rows))
		for i := range rows {
			records = append(records, &Record{Kind: kind, BarCredit: &rows[i]})
		}
		appendPage(records)
	}

	return list, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string, limit int) ([]OrderSummary, error) {
	limit = pagination.NormalizeLimit(limit)
	summaries := []OrderSummary{}

	var tickets []models.TicketOrder
	if err := r.db.WithContext(ctx).Where("customer_email = ?", email).
		Order("created_at DESC").Limit(limit).Find(&tickets).Error; err != nil {
		return nil, err
	}
	for i := range tickets {
		summaries = append(summaries, summarize(&Record{Kind: enums.OrderKindTicket, Ticket: &tickets[i]}))
	}

	var merch []models.MerchOrder
	if err := r.db.WithContext(ctx).Where("customer_email = ?", email).
		Order("created_at DESC").Limit(limit).Find(&merch).Error; err != nil {
		return nil, err
	}
	for i := range merch {
		summaries = append(summaries, summarize(&Record{Kind: enums.OrderKindMerch, Merch: &merch[i]}))
	}

	var credits []models.BarCredit
	if err := r.db.WithContext(ctx).Where("customer_email = ?", email).
		Order("created_at DESC").Limit(limit).Find(&credits).Error; err != nil {
		return nil, err
	}
	for i := range credits {
		summaries = append(summaries, summarize(&Record{Kind: enums.OrderKindBarCredit, BarCredit: &credits[i]}))
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (r *Record) summaryCreatedAt() time.Time {
	switch r.Kind {
	case enums.OrderKindTicket:
		return r.Ticket.CreatedAt
	case enums.OrderKindMerch:
		return r.Merch.CreatedAt
	case enums.OrderKindBarCredit:
		return r.BarCredit.CreatedAt
	}
	return time.Time{}
}
