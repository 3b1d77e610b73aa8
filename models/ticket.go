package models

import (
	"strings"

	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

const (
	TicketStatusValid     = "valid"
	TicketStatusCancelled = "cancelled"
	TicketStatusRefunded  = "refunded"

	ValidationStatusActive      = "active"
	ValidationStatusInvalidated = "invalidated"
)

const (
	TicketTypeWeekendPass = "weekend_pass"
	TicketTypeDayPass     = "day_pass"
	TicketTypeWorkshop    = "workshop"
	TicketTypeSocial      = "social"
)

type Ticket struct {
	ID                string         `db:"id" json:"id"`
	TicketID          string         `db:"ticket_id" json:"ticket_id"`
	EventID           string         `db:"event_id" json:"event_id"`
	TicketType        string         `db:"ticket_type" json:"ticket_type"` // weekend_pass, day_pass, workshop, social
	AttendeeFirstName string         `db:"attendee_first_name" json:"attendee_first_name"`
	AttendeeLastName  string         `db:"attendee_last_name" json:"attendee_last_name"`
	AttendeeEmail     string         `db:"attendee_email" json:"attendee_email"`
	PriceCents        int64          `db:"price_cents" json:"price_cents"`
	Currency          string         `db:"currency" json:"currency"`
	Status            string         `db:"status" json:"status"`                       // valid, cancelled, refunded
	ValidationStatus  string         `db:"validation_status" json:"validation_status"` // active, invalidated
	ScanCount         int            `db:"scan_count" json:"scan_count"`
	MaxScanCount      int            `db:"max_scan_count" json:"max_scan_count"`
	FirstScannedAt    types.DateTime `db:"first_scanned_at" json:"first_scanned_at"`
	LastScannedAt     types.DateTime `db:"last_scanned_at" json:"last_scanned_at"`
	QRToken           string         `db:"qr_token" json:"-"`
	OrderRef          string         `db:"order_ref" json:"order_ref,omitempty"`
	Created           types.DateTime `db:"created" json:"created"`
	Updated           types.DateTime `db:"updated" json:"updated"`
}

// Eligible reports whether a scan could currently succeed.
func (t *Ticket) Eligible() bool {
	return t.Status == TicketStatusValid &&
		t.ValidationStatus == ValidationStatusActive &&
		t.ScanCount < t.MaxScanCount
}

func (t *Ticket) AttendeeName() string {
	return strings.TrimSpace(t.AttendeeFirstName + " " + t.AttendeeLastName)
}

// Price converts the stored cents into an exact decimal amount.
func (t *Ticket) Price() decimal.Decimal {
	return decimal.NewFromInt(t.PriceCents).Div(decimal.NewFromInt(100))
}

type TicketStats struct {
	Total       int               `json:"total"`
	ByStatus    map[string]int    `json:"by_status"`
	ByType      map[string]int    `json:"by_type"`
	TotalScans  int               `json:"total_scans"`
	ScannedOnce int               `json:"scanned_once"`
	Revenue     map[string]string `json:"revenue"` // currency -> decimal amount of valid tickets
	GeneratedAt types.DateTime    `json:"generated_at"`
}
