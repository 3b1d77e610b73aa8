package handlers

import (
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"festival-tickets/models"
	"festival-tickets/services"
	"festival-tickets/store"
	"festival-tickets/utils"
)

// AdminHandler exposes the superuser-only ticket management surface.
type AdminHandler struct {
	store           *store.TicketStore
	scans           *store.ScanLogStore
	tokens          *services.TokenService
	audit           *services.AuditService
	defaultMaxScans int
}

func NewAdminHandler(st *store.TicketStore, scans *store.ScanLogStore, tokens *services.TokenService, audit *services.AuditService, defaultMaxScans int) *AdminHandler {
	return &AdminHandler{
		store:           st,
		scans:           scans,
		tokens:          tokens,
		audit:           audit,
		defaultMaxScans: defaultMaxScans,
	}
}

// maxIssueBatch caps one issue request; larger comp batches go through
// repeated calls so a typo cannot mint thousands of tickets.
const maxIssueBatch = 100

type issueTicketRequest struct {
	EventID           string `json:"event_id"`
	TicketType        string `json:"ticket_type"`
	AttendeeFirstName string `json:"attendee_first_name"`
	AttendeeLastName  string `json:"attendee_last_name"`
	AttendeeEmail     string `json:"attendee_email"`
	PriceCents        int64  `json:"price_cents"`
	Currency          string `json:"currency"`
	MaxScanCount      int    `json:"max_scan_count"`
	Count             int    `json:"count"`
	OrderRef          string `json:"order_ref"`
}

// IssueTicket handles POST /api/admin/tickets. Tickets are created valid
// and active with their QR tokens pre-minted, so the response can be handed
// straight to a delivery channel. A failure mid-batch leaves the earlier
// tickets issued; the audit trail shows how far it got.
func (h *AdminHandler) IssueTicket(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	var req issueTicketRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("event_id is required", nil)
	}
	if !validTicketType(req.TicketType) {
		return apis.NewBadRequestError("Unknown ticket_type", nil)
	}
	if req.PriceCents < 0 {
		return apis.NewBadRequestError("price_cents must not be negative", nil)
	}

	count := req.Count
	if count == 0 {
		count = 1
	}
	if count < 1 || count > maxIssueBatch {
		return apis.NewBadRequestError("count must be between 1 and 100", nil)
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	maxScans := req.MaxScanCount
	if maxScans <= 0 {
		maxScans = h.defaultMaxScans
	}

	issued := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		ticketID, err := utils.GenerateTicketID()
		if err != nil {
			return apis.NewInternalServerError("Ticket creation failed", err)
		}

		ticket := &models.Ticket{
			TicketID:          ticketID,
			EventID:           req.EventID,
			TicketType:        req.TicketType,
			AttendeeFirstName: req.AttendeeFirstName,
			AttendeeLastName:  req.AttendeeLastName,
			AttendeeEmail:     req.AttendeeEmail,
			PriceCents:        req.PriceCents,
			Currency:          currency,
			Status:            models.TicketStatusValid,
			ValidationStatus:  models.ValidationStatusActive,
			MaxScanCount:      maxScans,
			OrderRef:          req.OrderRef,
		}
		if err := h.store.CreateTicket(ticket); err != nil {
			return apis.NewInternalServerError("Ticket creation failed", err)
		}

		token, err := h.tokens.GetOrCreateToken(ticket.TicketID)
		if err != nil {
			return apis.NewInternalServerError("Token generation failed", err)
		}

		h.audit.RecordAdminAction(models.AuditTicketIssued, ticket.ID, actorName(e), map[string]any{
			"ticket_id":   ticket.TicketID,
			"event_id":    ticket.EventID,
			"ticket_type": ticket.TicketType,
		})

		issued = append(issued, map[string]any{
			"ticket":   ticket,
			"qr_token": token,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"tickets": issued,
		"count":   len(issued),
	})
}

// CancelTicket handles POST /api/admin/tickets/{ticketId}/cancel.
func (h *AdminHandler) CancelTicket(e *core.RequestEvent) error {
	return h.transition(e, models.AuditTicketCancelled, func(ticketID string) (bool, error) {
		return h.store.SetStatus(ticketID, models.TicketStatusCancelled)
	})
}

// InvalidateTicket handles POST /api/admin/tickets/{ticketId}/invalidate.
// Unlike cancellation this leaves the purchase intact and only blocks scans.
func (h *AdminHandler) InvalidateTicket(e *core.RequestEvent) error {
	return h.transition(e, models.AuditTicketInvalidated, func(ticketID string) (bool, error) {
		return h.store.SetValidationStatus(ticketID, models.ValidationStatusInvalidated)
	})
}

// RestoreTicket handles POST /api/admin/tickets/{ticketId}/restore and
// returns the ticket to a scannable state.
func (h *AdminHandler) RestoreTicket(e *core.RequestEvent) error {
	return h.transition(e, models.AuditTicketRestored, func(ticketID string) (bool, error) {
		found, err := h.store.SetStatus(ticketID, models.TicketStatusValid)
		if err != nil || !found {
			return found, err
		}
		return h.store.SetValidationStatus(ticketID, models.ValidationStatusActive)
	})
}

func (h *AdminHandler) transition(e *core.RequestEvent, action string, apply func(string) (bool, error)) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	// the body is optional; a bare POST transitions without a reason
	var body struct {
		Reason string `json:"reason"`
	}
	_ = e.BindBody(&body)

	ticketID := e.Request.PathValue("ticketId")
	ticket, err := h.store.FindByTicketID(nil, ticketID)
	if err != nil {
		return apis.NewInternalServerError("Ticket lookup failed", err)
	}
	if ticket == nil {
		return apis.NewNotFoundError("Ticket not found", nil)
	}

	found, err := apply(ticketID)
	if err != nil {
		return apis.NewInternalServerError("Ticket update failed", err)
	}
	if !found {
		return apis.NewNotFoundError("Ticket not found", nil)
	}

	details := map[string]any{
		"ticket_id":                  ticket.TicketID,
		"previous_status":            ticket.Status,
		"previous_validation_status": ticket.ValidationStatus,
	}
	if body.Reason != "" {
		details["reason"] = body.Reason
	}
	h.audit.RecordAdminAction(action, ticket.ID, actorName(e), details)

	fresh, err := h.store.FindByTicketID(nil, ticketID)
	if err != nil || fresh == nil {
		fresh = ticket
	}
	return e.JSON(http.StatusOK, map[string]any{"ticket": fresh})
}

// Stats handles GET /api/admin/tickets/stats.
func (h *AdminHandler) Stats(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	stats, err := h.store.Stats()
	if err != nil {
		return apis.NewInternalServerError("Stats query failed", err)
	}
	return e.JSON(http.StatusOK, stats)
}

// ScanLogs handles GET /api/admin/scan-logs?ticket_id=&limit=.
func (h *AdminHandler) ScanLogs(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	q := e.Request.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	logs, err := h.scans.List(q.Get("ticket_id"), limit)
	if err != nil {
		return apis.NewInternalServerError("Scan log query failed", err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"logs":  logs,
		"count": len(logs),
	})
}

func validTicketType(t string) bool {
	switch t {
	case models.TicketTypeWeekendPass, models.TicketTypeDayPass, models.TicketTypeWorkshop, models.TicketTypeSocial:
		return true
	}
	return false
}
