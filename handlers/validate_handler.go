package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"

	"festival-tickets/models"
	"festival-tickets/services"
)

// ValidateHandler terminates the gate scan endpoint.
type ValidateHandler struct {
	validation *services.ValidationService
	audit      *services.AuditService
	// gateKeyHash is the bcrypt hash of the shared scanner key.
	// Empty disables the check.
	gateKeyHash string
}

func NewValidateHandler(validation *services.ValidationService, audit *services.AuditService, gateKeyHash string) *ValidateHandler {
	return &ValidateHandler{
		validation:  validation,
		audit:       audit,
		gateKeyHash: gateKeyHash,
	}
}

// Validate handles /api/tickets/validate. The route is registered for every
// method so a scanner probing with GET still receives the JSON verdict shape
// instead of the router's plain error page.
func (h *ValidateHandler) Validate(e *core.RequestEvent) error {
	if e.Request.Method != http.MethodPost {
		return writeVerdict(e, &models.ValidationResult{Code: models.VerdictMethodNotAllowed})
	}

	meta := scanMetadata(e)

	if !h.gateAuthorized(e.Request) {
		h.audit.RecordScan(&models.ScanLog{
			Result:    models.ScanResultFailure,
			Reason:    string(models.VerdictUnauthorized),
			Source:    meta.Source,
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
		})
		return writeVerdict(e, &models.ValidationResult{Code: models.VerdictUnauthorized})
	}

	var req models.ScanRequest
	if err := e.BindBody(&req); err != nil {
		return writeVerdict(e, &models.ValidationResult{Code: models.VerdictTokenRequired})
	}

	return writeVerdict(e, h.validation.Validate(req.Token, meta))
}

func (h *ValidateHandler) gateAuthorized(r *http.Request) bool {
	if h.gateKeyHash == "" {
		return true
	}
	key := r.Header.Get("X-Gate-Key")
	if key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h.gateKeyHash), []byte(key)) == nil
}

func writeVerdict(e *core.RequestEvent, result *models.ValidationResult) error {
	if result.Valid() {
		return e.JSON(http.StatusOK, map[string]any{
			"valid":      true,
			"validation": result.Details(),
		})
	}
	return e.JSON(result.Code.HTTPStatus(), map[string]any{
		"valid": false,
		"error": result.Code.Message(),
	})
}
