package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/copperspur/rodeo-backend/pkg/enums"
)

// WebhookEvent is the durable dedupe ledger for gateway notifications.
// The (provider, event_id) pair is unique so redeliveries insert nothing.
type WebhookEvent struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Provider   enums.PaymentProvider `gorm:"column:provider;type:text;not null;uniqueIndex:webhook_events_provider_event_key,priority:1"`
	EventID    string                `gorm:"column:event_id;not null;uniqueIndex:webhook_events_provider_event_key,priority:2"`
	Kind       enums.OrderKind       `gorm:"column:kind;type:text;not null"`
	OrderNo    string                `gorm:"column:order_no;not null"`
	RecordID   *uuid.UUID            `gorm:"column:record_id;type:uuid"`
	Payload    []byte                `gorm:"column:payload;type:jsonb"`
	ReceivedAt time.Time             `gorm:"column:received_at;autoCreateTime"`
}
