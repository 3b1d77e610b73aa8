package handlers

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"festival-tickets/models"
)

// DetectSource classifies where a scan request originated. Wallet apps
// identify themselves through the X-Wallet-Source header baked into the
// pass link, or failing that through their user agent.
func DetectSource(r *http.Request) string {
	switch strings.ToLower(r.Header.Get("X-Wallet-Source")) {
	case "apple", "apple_wallet":
		return models.SourceAppleWallet
	case "google", "google_wallet":
		return models.SourceGoogleWallet
	}

	ua := strings.ToLower(r.UserAgent())
	switch {
	case strings.Contains(ua, "passbook"), strings.Contains(ua, "passkit"):
		return models.SourceAppleWallet
	case strings.Contains(ua, "googlewallet"), strings.Contains(ua, "google-valuables"):
		return models.SourceGoogleWallet
	default:
		return models.SourceWeb
	}
}

func scanMetadata(e *core.RequestEvent) models.ScanMetadata {
	return models.ScanMetadata{
		Source:    DetectSource(e.Request),
		IP:        e.RealIP(),
		UserAgent: e.Request.UserAgent(),
	}
}

// actorName identifies the authenticated admin for audit entries.
func actorName(e *core.RequestEvent) string {
	if e.Auth == nil {
		return ""
	}
	if email := e.Auth.GetString("email"); email != "" {
		return email
	}
	return e.Auth.Id
}

// requireAdmin gates the admin surface to authenticated superusers.
func requireAdmin(e *core.RequestEvent) error {
	if e.Auth == nil || e.Auth.Collection().Name != core.CollectionNameSuperusers {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}
	return nil
}
