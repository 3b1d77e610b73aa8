package services

import (
	"path/filepath"
	"testing"

	"github.com/pocketbase/dbx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"festival-tickets/models"
	"festival-tickets/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const testSchema = `CREATE TABLE tickets (
	id TEXT PRIMARY KEY NOT NULL,
	ticket_id TEXT NOT NULL DEFAULT '',
	event_id TEXT NOT NULL DEFAULT '',
	ticket_type TEXT NOT NULL DEFAULT '',
	attendee_first_name TEXT NOT NULL DEFAULT '',
	attendee_last_name TEXT NOT NULL DEFAULT '',
	attendee_email TEXT NOT NULL DEFAULT '',
	price_cents NUMERIC NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'USD',
	status TEXT NOT NULL DEFAULT 'valid',
	validation_status TEXT NOT NULL DEFAULT 'active',
	scan_count NUMERIC NOT NULL DEFAULT 0,
	max_scan_count NUMERIC NOT NULL DEFAULT 10,
	first_scanned_at TEXT NOT NULL DEFAULT '',
	last_scanned_at TEXT NOT NULL DEFAULT '',
	qr_token TEXT NOT NULL DEFAULT '',
	order_ref TEXT NOT NULL DEFAULT '',
	created TEXT NOT NULL DEFAULT '',
	updated TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX idx_tickets_ticket_id ON tickets (ticket_id);
CREATE TABLE scan_logs (
	id TEXT PRIMARY KEY NOT NULL,
	ticket TEXT NOT NULL DEFAULT '',
	ticket_id TEXT NOT NULL DEFAULT '',
	result TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	ip TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	metadata JSON NOT NULL DEFAULT '{}',
	created TEXT NOT NULL DEFAULT ''
);
CREATE INDEX idx_scan_logs_ticket_id ON scan_logs (ticket_id);
CREATE TABLE audit_logs (
	id TEXT PRIMARY KEY NOT NULL,
	action TEXT NOT NULL DEFAULT '',
	ticket TEXT NOT NULL DEFAULT '',
	actor TEXT NOT NULL DEFAULT '',
	details JSON NOT NULL DEFAULT '{}',
	created TEXT NOT NULL DEFAULT ''
);`

type testStores struct {
	db      *dbx.DB
	tickets *store.TicketStore
	scans   *store.ScanLogStore
	audits  *store.AuditLogStore
}

// newTestStores opens a file-backed SQLite database with the production
// schema, capped at one connection to match the serialized write pool the
// app gets from PocketBase.
func newTestStores(t *testing.T) *testStores {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "data.db") +
		"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	db, err := dbx.Open("sqlite", dsn)
	require.NoError(t, err)
	db.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.NewQuery(testSchema).Execute()
	require.NoError(t, err)

	run := func(fn store.TxFunc) error {
		return db.Transactional(func(tx *dbx.Tx) error { return fn(tx) })
	}
	return &testStores{
		db:      db,
		tickets: store.NewTicketStore(db, run),
		scans:   store.NewScanLogStore(db, run),
		audits:  store.NewAuditLogStore(db, run),
	}
}

func seedTicket(t *testing.T, st *store.TicketStore, mutate func(*models.Ticket)) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{
		TicketID:          "TKT-TEST0001",
		EventID:           "boulderfest-2026",
		TicketType:        models.TicketTypeWeekendPass,
		AttendeeFirstName: "Ana",
		AttendeeLastName:  "Diaz",
		AttendeeEmail:     "ana@example.com",
		PriceCents:        12500,
		Currency:          "USD",
		Status:            models.TicketStatusValid,
		ValidationStatus:  models.ValidationStatusActive,
		MaxScanCount:      5,
	}
	if mutate != nil {
		mutate(ticket)
	}
	require.NoError(t, st.CreateTicket(ticket))
	return ticket
}

func newTestTokenService(t *testing.T, st *store.TicketStore) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret, 0, st)
	require.NoError(t, err)
	return svc
}
