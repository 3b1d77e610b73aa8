package models

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdictCode_HTTPStatus(t *testing.T) {
	cases := map[VerdictCode]int{
		VerdictOK:               http.StatusOK,
		VerdictMethodNotAllowed: http.StatusMethodNotAllowed,
		VerdictTokenRequired:    http.StatusBadRequest,
		VerdictInvalidToken:     http.StatusBadRequest,
		VerdictUnauthorized:     http.StatusUnauthorized,
		VerdictNotFound:         http.StatusNotFound,
		VerdictCancelled:        http.StatusGone,
		VerdictRefunded:         http.StatusGone,
		VerdictInvalidated:      http.StatusGone,
		VerdictMaxScansExceeded: http.StatusConflict,
		VerdictRateLimited:      http.StatusTooManyRequests,
		VerdictFailed:           http.StatusInternalServerError,
	}

	for code, want := range cases {
		assert.Equal(t, want, code.HTTPStatus(), "code %s", code)
	}
}

func TestVerdictCode_MessageNeverEmpty(t *testing.T) {
	codes := []VerdictCode{
		VerdictOK, VerdictMethodNotAllowed, VerdictTokenRequired,
		VerdictInvalidToken, VerdictNotFound, VerdictCancelled,
		VerdictRefunded, VerdictInvalidated, VerdictMaxScansExceeded,
		VerdictUnauthorized, VerdictRateLimited, VerdictFailed,
		VerdictCode("something_new"),
	}
	for _, code := range codes {
		assert.NotEmpty(t, code.Message(), "code %s", code)
	}
}

func TestTicket_Eligible(t *testing.T) {
	ticket := Ticket{
		Status:           TicketStatusValid,
		ValidationStatus: ValidationStatusActive,
		ScanCount:        2,
		MaxScanCount:     5,
	}
	assert.True(t, ticket.Eligible())

	exhausted := ticket
	exhausted.ScanCount = 5
	assert.False(t, exhausted.Eligible())

	cancelled := ticket
	cancelled.Status = TicketStatusCancelled
	assert.False(t, cancelled.Eligible())

	invalidated := ticket
	invalidated.ValidationStatus = ValidationStatusInvalidated
	assert.False(t, invalidated.Eligible())
}

func TestTicket_Price(t *testing.T) {
	ticket := Ticket{PriceCents: 12550}
	assert.Equal(t, "125.50", ticket.Price().StringFixed(2))

	free := Ticket{PriceCents: 0}
	assert.Equal(t, "0.00", free.Price().StringFixed(2))
}

func TestValidationResult_Details(t *testing.T) {
	empty := ValidationResult{Code: VerdictNotFound}
	assert.Nil(t, empty.Details())

	first, err := types.ParseDateTime("2026-05-15 18:00:00.000Z")
	require.NoError(t, err)

	res := ValidationResult{
		Code: VerdictOK,
		Ticket: &Ticket{
			TicketID:          "TKT-AB12CD34",
			EventID:           "boulderfest-2026",
			TicketType:        TicketTypeWeekendPass,
			AttendeeFirstName: "Maria",
			AttendeeLastName:  "Lopez",
			Status:            TicketStatusValid,
			ScanCount:         1,
			MaxScanCount:      10,
			FirstScannedAt:    first,
			LastScannedAt:     first,
		},
	}

	details := res.Details()
	require.NotNil(t, details)
	assert.True(t, res.Valid())
	assert.Equal(t, "TKT-AB12CD34", details.TicketID)
	assert.Equal(t, "Maria Lopez", details.Attendee)
	assert.Equal(t, 1, details.ScanCount)
	assert.Equal(t, first.String(), details.FirstScannedAt)
	assert.Equal(t, "Ticket valid", details.Message)

	// An unscanned ticket omits the timestamps entirely.
	fresh := ValidationResult{Code: VerdictOK, Ticket: &Ticket{TicketID: "TKT-X"}}
	data, err := json.Marshal(fresh.Details())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "first_scanned_at")
	assert.NotContains(t, string(data), "last_scanned_at")
}
