package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	qrcode "github.com/skip2/go-qrcode"

	"festival-tickets/internal/wallet"
	"festival-tickets/services"
	"festival-tickets/store"
)

// qrImageSize is the pixel width of the generated QR PNG. 256px scans
// reliably from phone screens at gate distance.
const qrImageSize = 256

type TicketHandler struct {
	store   *store.TicketStore
	tokens  *services.TokenService
	wallets *wallet.Registry
}

func NewTicketHandler(st *store.TicketStore, tokens *services.TokenService, wallets *wallet.Registry) *TicketHandler {
	return &TicketHandler{
		store:   st,
		tokens:  tokens,
		wallets: wallets,
	}
}

// Info handles GET /api/tickets/{ticketId}. The endpoint is public, so the
// payload is the ticket-page summary without contact details.
func (h *TicketHandler) Info(e *core.RequestEvent) error {
	ticketID := e.Request.PathValue("ticketId")
	ticket, err := h.store.FindByTicketID(nil, ticketID)
	if err != nil {
		return apis.NewInternalServerError("Ticket lookup failed", err)
	}
	if ticket == nil {
		return apis.NewNotFoundError("Ticket not found", nil)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id":           ticket.TicketID,
		"event_id":            ticket.EventID,
		"ticket_type":         ticket.TicketType,
		"status":              ticket.Status,
		"validation_status":   ticket.ValidationStatus,
		"attendee_first_name": ticket.AttendeeFirstName,
		"scan_count":          ticket.ScanCount,
		"max_scan_count":      ticket.MaxScanCount,
		"price":               ticket.Price().StringFixed(2),
		"currency":            ticket.Currency,
	})
}

// QR handles GET /api/tickets/{ticketId}/qr and streams the QR code PNG
// the attendee presents at the gate.
func (h *TicketHandler) QR(e *core.RequestEvent) error {
	ticketID := e.Request.PathValue("ticketId")
	token, err := h.tokens.GetOrCreateToken(ticketID)
	if errors.Is(err, services.ErrTicketNotFound) {
		return apis.NewNotFoundError("Ticket not found", nil)
	}
	if err != nil {
		return apis.NewInternalServerError("QR generation failed", err)
	}

	png, err := qrcode.Encode(token, qrcode.Medium, qrImageSize)
	if err != nil {
		return apis.NewInternalServerError("QR generation failed", err)
	}

	e.Response.Header().Set("Content-Type", "image/png")
	e.Response.Header().Set("Cache-Control", "private, no-store")
	_, err = e.Response.Write(png)
	return err
}

// GoogleWallet handles GET /api/tickets/{ticketId}/wallet/google and returns
// the signed Add to Google Wallet link for the ticket.
func (h *TicketHandler) GoogleWallet(e *core.RequestEvent) error {
	provider, err := h.wallets.Get(wallet.ProviderGoogle)
	if err != nil {
		return apis.NewApiError(http.StatusServiceUnavailable, "Google Wallet is not configured", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	ticket, err := h.store.FindByTicketID(nil, ticketID)
	if err != nil {
		return apis.NewInternalServerError("Ticket lookup failed", err)
	}
	if ticket == nil {
		return apis.NewNotFoundError("Ticket not found", nil)
	}

	token, err := h.tokens.GetOrCreateToken(ticketID)
	if err != nil {
		return apis.NewInternalServerError("Token generation failed", err)
	}

	saveURL, err := provider.SaveURL(&wallet.Pass{
		TicketID:   ticket.TicketID,
		EventID:    ticket.EventID,
		EventName:  eventDisplayName(ticket.EventID),
		TicketType: ticket.TicketType,
		Attendee:   ticket.AttendeeName(),
		Token:      token,
	})
	if err != nil {
		return apis.NewInternalServerError("Wallet pass signing failed", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"provider": string(wallet.ProviderGoogle),
		"save_url": saveURL,
	})
}

// eventDisplayName turns a slug like "boulderfest-2026" into a label
// usable as a wallet pass title.
func eventDisplayName(eventID string) string {
	words := strings.Split(eventID, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
