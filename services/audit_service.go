package services

import (
	"encoding/json"
	"log/slog"

	"festival-tickets/models"
	"festival-tickets/store"
)

// AuditService writes the append-only scan and admin trails. Recording is
// deliberately infallible from the caller's point of view: a full disk or a
// locked table must never turn away an attendee at the gate, so failures are
// logged and swallowed.
type AuditService struct {
	scans  *store.ScanLogStore
	audits *store.AuditLogStore
}

func NewAuditService(scans *store.ScanLogStore, audits *store.AuditLogStore) *AuditService {
	return &AuditService{scans: scans, audits: audits}
}

// RecordScan appends one scan attempt, successful or not.
func (s *AuditService) RecordScan(entry *models.ScanLog) {
	if err := s.scans.Insert(entry); err != nil {
		slog.Error("scan log write failed",
			"ticket_id", entry.TicketID,
			"result", entry.Result,
			"reason", entry.Reason,
			"error", err,
		)
	}
}

// RecordAdminAction appends one admin trail entry. details is marshalled
// into the JSON column; a nil map records an empty object.
func (s *AuditService) RecordAdminAction(action, ticketRef, actor string, details map[string]any) {
	entry := &models.AuditLog{
		Action: action,
		Ticket: ticketRef,
		Actor:  actor,
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			slog.Error("audit details marshal failed", "action", action, "error", err)
		} else {
			entry.Details = raw
		}
	}
	if err := s.audits.Insert(entry); err != nil {
		slog.Error("audit log write failed", "action", action, "actor", actor, "error", err)
	}
}
