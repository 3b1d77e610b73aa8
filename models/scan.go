package models

import (
	"net/http"

	"github.com/pocketbase/pocketbase/tools/types"
)

const (
	SourceWeb          = "web"
	SourceAppleWallet  = "apple_wallet"
	SourceGoogleWallet = "google_wallet"
)

const (
	ScanResultSuccess = "success"
	ScanResultFailure = "failure"
)

// VerdictCode identifies the outcome of one validation attempt.
type VerdictCode string

const (
	VerdictOK               VerdictCode = "ok"
	VerdictMethodNotAllowed VerdictCode = "method_not_allowed"
	VerdictTokenRequired    VerdictCode = "token_required"
	VerdictInvalidToken     VerdictCode = "invalid_token"
	VerdictNotFound         VerdictCode = "not_found"
	VerdictCancelled        VerdictCode = "cancelled"
	VerdictRefunded         VerdictCode = "refunded"
	VerdictInvalidated      VerdictCode = "invalidated"
	VerdictMaxScansExceeded VerdictCode = "max_scans_exceeded"
	VerdictUnauthorized     VerdictCode = "unauthorized"
	VerdictRateLimited      VerdictCode = "rate_limited"
	VerdictFailed           VerdictCode = "validation_failed"
)

func (c VerdictCode) HTTPStatus() int {
	switch c {
	case VerdictOK:
		return http.StatusOK
	case VerdictMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case VerdictTokenRequired, VerdictInvalidToken:
		return http.StatusBadRequest
	case VerdictUnauthorized:
		return http.StatusUnauthorized
	case VerdictNotFound:
		return http.StatusNotFound
	case VerdictCancelled, VerdictRefunded, VerdictInvalidated:
		return http.StatusGone
	case VerdictMaxScansExceeded:
		return http.StatusConflict
	case VerdictRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message is the short reason shown on the scanner screen at the gate.
// Token failures deliberately share one message so expired and tampered
// tokens are indistinguishable from outside.
func (c VerdictCode) Message() string {
	switch c {
	case VerdictOK:
		return "Ticket valid"
	case VerdictMethodNotAllowed:
		return "Method not allowed"
	case VerdictTokenRequired:
		return "Token required"
	case VerdictInvalidToken:
		return "Invalid or expired token"
	case VerdictNotFound:
		return "Ticket not found"
	case VerdictCancelled:
		return "Ticket cancelled"
	case VerdictRefunded:
		return "Ticket refunded"
	case VerdictInvalidated:
		return "Ticket invalidated"
	case VerdictMaxScansExceeded:
		return "Maximum scans exceeded"
	case VerdictUnauthorized:
		return "Scanner not authorized"
	case VerdictRateLimited:
		return "Too many requests"
	default:
		return "Validation failed"
	}
}

type ScanRequest struct {
	Token string `json:"token"`
}

// ScanMetadata carries request context captured for auditing.
type ScanMetadata struct {
	Source    string `json:"source"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}

// ValidationResult is the internal outcome of a validate call; handlers
// translate it into the HTTP response.
type ValidationResult struct {
	Code   VerdictCode
	Ticket *Ticket // populated when the ticket row was found
}

func (r ValidationResult) Valid() bool {
	return r.Code == VerdictOK
}

// ValidationDetails is the success payload returned to the scanner.
type ValidationDetails struct {
	TicketID       string `json:"ticket_id"`
	EventID        string `json:"event_id"`
	TicketType     string `json:"ticket_type"`
	Attendee       string `json:"attendee,omitempty"`
	Status         string `json:"status"`
	ScanCount      int    `json:"scan_count"`
	MaxScanCount   int    `json:"max_scan_count"`
	FirstScannedAt string `json:"first_scanned_at,omitempty"`
	LastScannedAt  string `json:"last_scanned_at,omitempty"`
	Message        string `json:"message"`
}

func (r ValidationResult) Details() *ValidationDetails {
	if r.Ticket == nil {
		return nil
	}
	return &ValidationDetails{
		TicketID:       r.Ticket.TicketID,
		EventID:        r.Ticket.EventID,
		TicketType:     r.Ticket.TicketType,
		Attendee:       r.Ticket.AttendeeName(),
		Status:         r.Ticket.Status,
		ScanCount:      r.Ticket.ScanCount,
		MaxScanCount:   r.Ticket.MaxScanCount,
		FirstScannedAt: formatDateTime(r.Ticket.FirstScannedAt),
		LastScannedAt:  formatDateTime(r.Ticket.LastScannedAt),
		Message:        r.Code.Message(),
	}
}

func formatDateTime(dt types.DateTime) string {
	if dt.IsZero() {
		return ""
	}
	return dt.String()
}

// ScanLog is one immutable audit entry for a validation attempt.
type ScanLog struct {
	ID        string         `db:"id" json:"id"`
	Ticket    string         `db:"ticket" json:"-"` // tickets record ref, empty if unresolved
	TicketID  string         `db:"ticket_id" json:"ticket_id,omitempty"`
	Result    string         `db:"result" json:"result"` // success, failure
	Reason    string         `db:"reason" json:"reason,omitempty"`
	Source    string         `db:"source" json:"source"`
	IP        string         `db:"ip" json:"ip,omitempty"`
	UserAgent string         `db:"user_agent" json:"user_agent,omitempty"`
	Metadata  types.JSONRaw  `db:"metadata" json:"metadata,omitempty"`
	Created   types.DateTime `db:"created" json:"created"`
}

// AuditLog records an admin action against a ticket.
type AuditLog struct {
	ID      string         `db:"id" json:"id"`
	Action  string         `db:"action" json:"action"`
	Ticket  string         `db:"ticket" json:"-"`
	Actor   string         `db:"actor" json:"actor"`
	Details types.JSONRaw  `db:"details" json:"details,omitempty"`
	Created types.DateTime `db:"created" json:"created"`
}

const (
	AuditTicketIssued      = "ticket_issued"
	AuditTicketCancelled   = "ticket_cancelled"
	AuditTicketInvalidated = "ticket_invalidated"
	AuditTicketRestored    = "ticket_restored"
	AuditTicketUpdated     = "ticket_updated"
	AuditTicketDeleted     = "ticket_deleted"
)
