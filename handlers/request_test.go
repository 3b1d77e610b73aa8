package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"festival-tickets/models"
)

func TestDetectSource(t *testing.T) {
	cases := []struct {
		name      string
		header    string
		userAgent string
		want      string
	}{
		{
			name: "plain browser",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) " +
				"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			want: models.SourceWeb,
		},
		{
			name:   "apple header",
			header: "apple",
			want:   models.SourceAppleWallet,
		},
		{
			name:   "google header full value",
			header: "google_wallet",
			want:   models.SourceGoogleWallet,
		},
		{
			name:      "header wins over user agent",
			header:    "Apple",
			userAgent: "GoogleWallet/1.0",
			want:      models.SourceAppleWallet,
		},
		{
			name:      "passkit user agent",
			userAgent: "PassKit/5.0 CFNetwork/1410.0.3 Darwin/22.6.0",
			want:      models.SourceAppleWallet,
		},
		{
			name:      "passbook user agent",
			userAgent: "Passbook/9.0 Mobile/13A404",
			want:      models.SourceAppleWallet,
		},
		{
			name:      "google valuables user agent",
			userAgent: "Mozilla/5.0 (Linux; Android 14) Google-Valuables/1.0",
			want:      models.SourceGoogleWallet,
		},
		{
			name:   "unknown header falls through to user agent",
			header: "samsung",
			want:   models.SourceWeb,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/tickets/validate", nil)
			if tc.header != "" {
				req.Header.Set("X-Wallet-Source", tc.header)
			}
			if tc.userAgent != "" {
				req.Header.Set("User-Agent", tc.userAgent)
			}

			assert.Equal(t, tc.want, DetectSource(req))
		})
	}
}

func TestGateAuthorized(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("gate-key-2026"), bcrypt.MinCost)
	require.NoError(t, err)

	h := &ValidateHandler{gateKeyHash: string(hash)}

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/validate", nil)
	assert.False(t, h.gateAuthorized(req), "missing key must be rejected")

	req.Header.Set("X-Gate-Key", "wrong-key")
	assert.False(t, h.gateAuthorized(req))

	req.Header.Set("X-Gate-Key", "gate-key-2026")
	assert.True(t, h.gateAuthorized(req))

	open := &ValidateHandler{}
	assert.True(t, open.gateAuthorized(httptest.NewRequest(http.MethodPost, "/", nil)),
		"empty hash disables the check")
}

func TestEventDisplayName(t *testing.T) {
	assert.Equal(t, "Boulderfest 2026", eventDisplayName("boulderfest-2026"))
	assert.Equal(t, "Winter Weekender", eventDisplayName("winter-weekender"))
	assert.Equal(t, "2027", eventDisplayName("2027"))
	assert.Equal(t, "", eventDisplayName(""))
}

func TestValidTicketType(t *testing.T) {
	for _, valid := range []string{
		models.TicketTypeWeekendPass,
		models.TicketTypeDayPass,
		models.TicketTypeWorkshop,
		models.TicketTypeSocial,
	} {
		assert.True(t, validTicketType(valid), valid)
	}

	assert.False(t, validTicketType(""))
	assert.False(t, validTicketType("vip"))
	assert.False(t, validTicketType("WEEKEND_PASS"))
}
