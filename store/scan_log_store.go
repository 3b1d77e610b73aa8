package store

import (
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"

	"festival-tickets/models"
)

// ScanLogStore appends and lists validation audit entries. Entries are
// write-once; there is deliberately no update or delete operation.
type ScanLogStore struct {
	db      dbx.Builder
	runInTx func(TxFunc) error
}

func NewScanLogStore(db dbx.Builder, runInTx func(TxFunc) error) *ScanLogStore {
	return &ScanLogStore{db: db, runInTx: runInTx}
}

func (s *ScanLogStore) Insert(entry *models.ScanLog) error {
	if entry.ID == "" {
		entry.ID = newRecordID()
	}
	if entry.Created.IsZero() {
		entry.Created = types.NowDateTime()
	}
	if entry.Metadata == nil {
		entry.Metadata = types.JSONRaw("{}")
	}
	return s.runInTx(func(tx dbx.Builder) error {
		_, err := tx.NewQuery(`INSERT INTO scan_logs
				(id, ticket, ticket_id, result, reason, source, ip, user_agent, metadata, created)
			VALUES
				({:id}, {:ticket}, {:ticket_id}, {:result}, {:reason}, {:source}, {:ip}, {:user_agent}, {:metadata}, {:created})`).
			Bind(dbx.Params{
				"id":         entry.ID,
				"ticket":     entry.Ticket,
				"ticket_id":  entry.TicketID,
				"result":     entry.Result,
				"reason":     entry.Reason,
				"source":     entry.Source,
				"ip":         entry.IP,
				"user_agent": entry.UserAgent,
				"metadata":   entry.Metadata.String(),
				"created":    entry.Created.String(),
			}).
			Execute()
		if err != nil {
			return fmt.Errorf("insert scan log: %w", err)
		}
		return nil
	})
}

// List returns entries newest first, optionally filtered by business ticket id.
func (s *ScanLogStore) List(ticketID string, limit int) ([]models.ScanLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := "SELECT * FROM scan_logs ORDER BY created DESC, id DESC LIMIT {:limit}"
	params := dbx.Params{"limit": limit}
	if ticketID != "" {
		query = "SELECT * FROM scan_logs WHERE ticket_id = {:ticket_id} ORDER BY created DESC, id DESC LIMIT {:limit}"
		params["ticket_id"] = ticketID
	}

	var entries []models.ScanLog
	if err := s.db.NewQuery(query).Bind(params).All(&entries); err != nil {
		return nil, fmt.Errorf("list scan logs: %w", err)
	}
	return entries, nil
}

// CountByResult aggregates attempts per result value (success/failure).
func (s *ScanLogStore) CountByResult() (map[string]int, error) {
	var rows []dbx.NullStringMap
	if err := s.db.NewQuery("SELECT result, COUNT(*) AS n FROM scan_logs GROUP BY result").All(&rows); err != nil {
		return nil, fmt.Errorf("count scan logs: %w", err)
	}
	counts := map[string]int{}
	for _, row := range rows {
		counts[row["result"].String] = parseCount(row["n"])
	}
	return counts, nil
}
