package store

import (
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"

	"festival-tickets/models"
)

// AuditLogStore appends admin-action records. Append-only, same as scan logs.
type AuditLogStore struct {
	db      dbx.Builder
	runInTx func(TxFunc) error
}

func NewAuditLogStore(db dbx.Builder, runInTx func(TxFunc) error) *AuditLogStore {
	return &AuditLogStore{db: db, runInTx: runInTx}
}

func (s *AuditLogStore) Insert(entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = newRecordID()
	}
	if entry.Created.IsZero() {
		entry.Created = types.NowDateTime()
	}
	if entry.Details == nil {
		entry.Details = types.JSONRaw("{}")
	}
	return s.runInTx(func(tx dbx.Builder) error {
		_, err := tx.NewQuery(`INSERT INTO audit_logs
				(id, action, ticket, actor, details, created)
			VALUES
				({:id}, {:action}, {:ticket}, {:actor}, {:details}, {:created})`).
			Bind(dbx.Params{
				"id":      entry.ID,
				"action":  entry.Action,
				"ticket":  entry.Ticket,
				"actor":   entry.Actor,
				"details": entry.Details.String(),
				"created": entry.Created.String(),
			}).
			Execute()
		if err != nil {
			return fmt.Errorf("insert audit log: %w", err)
		}
		return nil
	})
}
