package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/security"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"festival-tickets/models"
)

// TxFunc runs with a builder scoped to one database transaction.
type TxFunc func(tx dbx.Builder) error

const recordIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func newRecordID() string {
	return security.RandomStringWithAlphabet(15, recordIDAlphabet)
}

// TicketStore is the SQL side of ticket validation. Reads go through db;
// writes run inside runInTx, which the caller wires to the application's
// transactional runner (PocketBase serializes those on its write pool).
type TicketStore struct {
	db      dbx.Builder
	runInTx func(TxFunc) error
}

func NewTicketStore(db dbx.Builder, runInTx func(TxFunc) error) *TicketStore {
	return &TicketStore{db: db, runInTx: runInTx}
}

func (s *TicketStore) RunInTx(fn TxFunc) error {
	return s.runInTx(fn)
}

// FindByTicketID returns nil without error when the ticket does not exist.
// Pass a tx builder to read inside a transaction, or nil for the read pool.
func (s *TicketStore) FindByTicketID(db dbx.Builder, ticketID string) (*models.Ticket, error) {
	if db == nil {
		db = s.db
	}
	ticket := &models.Ticket{}
	err := db.NewQuery("SELECT * FROM tickets WHERE ticket_id = {:ticket_id} LIMIT 1").
		Bind(dbx.Params{"ticket_id": ticketID}).
		One(ticket)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	return ticket, nil
}

// ApplyScan performs the single-statement conditional increment. The guard is
// re-evaluated by the storage engine at write time, so two concurrent scans
// can never both consume the last remaining slot. Returns false when the
// guard rejected the write (no headroom or no longer eligible).
func (s *TicketStore) ApplyScan(tx dbx.Builder, ticketID string, now types.DateTime) (bool, error) {
	res, err := tx.NewQuery(`UPDATE tickets SET
			scan_count = scan_count + 1,
			first_scanned_at = CASE WHEN first_scanned_at = '' OR first_scanned_at IS NULL THEN {:now} ELSE first_scanned_at END,
			last_scanned_at = {:now},
			updated = {:now}
		WHERE ticket_id = {:ticket_id}
			AND scan_count < max_scan_count
			AND status = 'valid'
			AND validation_status = 'active'`).
		Bind(dbx.Params{"ticket_id": ticketID, "now": now.String()}).
		Execute()
	if err != nil {
		return false, fmt.Errorf("apply scan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply scan result: %w", err)
	}
	return affected == 1, nil
}

func (s *TicketStore) CreateTicket(ticket *models.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = newRecordID()
	}
	now := types.NowDateTime()
	ticket.Created = now
	ticket.Updated = now
	return s.runInTx(func(tx dbx.Builder) error {
		_, err := tx.NewQuery(`INSERT INTO tickets
				(id, ticket_id, event_id, ticket_type,
				attendee_first_name, attendee_last_name, attendee_email,
				price_cents, currency, status, validation_status,
				scan_count, max_scan_count, first_scanned_at, last_scanned_at,
				qr_token, order_ref, created, updated)
			VALUES
				({:id}, {:ticket_id}, {:event_id}, {:ticket_type},
				{:first_name}, {:last_name}, {:email},
				{:price_cents}, {:currency}, {:status}, {:validation_status},
				{:scan_count}, {:max_scan_count}, '', '',
				{:qr_token}, {:order_ref}, {:created}, {:updated})`).
			Bind(dbx.Params{
				"id":                ticket.ID,
				"ticket_id":         ticket.TicketID,
				"event_id":          ticket.EventID,
				"ticket_type":       ticket.TicketType,
				"first_name":        ticket.AttendeeFirstName,
				"last_name":         ticket.AttendeeLastName,
				"email":             ticket.AttendeeEmail,
				"price_cents":       ticket.PriceCents,
				"currency":          ticket.Currency,
				"status":            ticket.Status,
				"validation_status": ticket.ValidationStatus,
				"scan_count":        ticket.ScanCount,
				"max_scan_count":    ticket.MaxScanCount,
				"qr_token":          ticket.QRToken,
				"order_ref":         ticket.OrderRef,
				"created":           ticket.Created.String(),
				"updated":           ticket.Updated.String(),
			}).
			Execute()
		if err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
		return nil
	})
}

func (s *TicketStore) SaveQRToken(ticketID, token string) error {
	return s.runInTx(func(tx dbx.Builder) error {
		_, err := tx.NewQuery("UPDATE tickets SET qr_token = {:token}, updated = {:now} WHERE ticket_id = {:ticket_id}").
			Bind(dbx.Params{
				"token":     token,
				"now":       types.NowDateTime().String(),
				"ticket_id": ticketID,
			}).
			Execute()
		if err != nil {
			return fmt.Errorf("save qr token: %w", err)
		}
		return nil
	})
}

// SetStatus transitions status (valid/cancelled/refunded). Returns false when
// the ticket does not exist.
func (s *TicketStore) SetStatus(ticketID, status string) (bool, error) {
	return s.setColumn(ticketID, "status", status)
}

// SetValidationStatus transitions validation_status (active/invalidated).
func (s *TicketStore) SetValidationStatus(ticketID, validationStatus string) (bool, error) {
	return s.setColumn(ticketID, "validation_status", validationStatus)
}

func (s *TicketStore) setColumn(ticketID, column, value string) (bool, error) {
	var affected int64
	err := s.runInTx(func(tx dbx.Builder) error {
		res, err := tx.NewQuery("UPDATE tickets SET "+column+" = {:value}, updated = {:now} WHERE ticket_id = {:ticket_id}").
			Bind(dbx.Params{
				"value":     value,
				"now":       types.NowDateTime().String(),
				"ticket_id": ticketID,
			}).
			Execute()
		if err != nil {
			return fmt.Errorf("update %s: %w", column, err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected == 1, err
}

// Stats aggregates the counters shown on the admin dashboard. Revenue is
// summed in cents per currency and converted with decimals, never floats.
func (s *TicketStore) Stats() (*models.TicketStats, error) {
	stats := &models.TicketStats{
		ByStatus:    map[string]int{},
		ByType:      map[string]int{},
		Revenue:     map[string]string{},
		GeneratedAt: types.NowDateTime(),
	}

	var statusRows []dbx.NullStringMap
	if err := s.db.NewQuery("SELECT status, COUNT(*) AS n FROM tickets GROUP BY status").All(&statusRows); err != nil {
		return nil, fmt.Errorf("stats by status: %w", err)
	}
	for _, row := range statusRows {
		n := parseCount(row["n"])
		stats.ByStatus[row["status"].String] = n
		stats.Total += n
	}

	var typeRows []dbx.NullStringMap
	if err := s.db.NewQuery("SELECT ticket_type, COUNT(*) AS n FROM tickets GROUP BY ticket_type").All(&typeRows); err != nil {
		return nil, fmt.Errorf("stats by type: %w", err)
	}
	for _, row := range typeRows {
		stats.ByType[row["ticket_type"].String] = parseCount(row["n"])
	}

	var scanRows []dbx.NullStringMap
	err := s.db.NewQuery("SELECT COALESCE(SUM(scan_count), 0) AS scans, COALESCE(SUM(scan_count > 0), 0) AS scanned FROM tickets").
		All(&scanRows)
	if err != nil {
		return nil, fmt.Errorf("stats scans: %w", err)
	}
	if len(scanRows) > 0 {
		stats.TotalScans = parseCount(scanRows[0]["scans"])
		stats.ScannedOnce = parseCount(scanRows[0]["scanned"])
	}

	var revenueRows []dbx.NullStringMap
	err = s.db.NewQuery("SELECT currency, COALESCE(SUM(price_cents), 0) AS cents FROM tickets WHERE status = 'valid' GROUP BY currency").
		All(&revenueRows)
	if err != nil {
		return nil, fmt.Errorf("stats revenue: %w", err)
	}
	for _, row := range revenueRows {
		cents := decimal.NewFromInt(int64(parseCount(row["cents"])))
		stats.Revenue[row["currency"].String] = cents.Div(decimal.NewFromInt(100)).StringFixed(2)
	}

	return stats, nil
}

func parseCount(v sql.NullString) int {
	if !v.Valid {
		return 0
	}
	n, err := strconv.Atoi(v.String)
	if err != nil {
		return 0
	}
	return n
}
