package services

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"

	"festival-tickets/models"
	"festival-tickets/monitoring"
	"festival-tickets/store"
	"festival-tickets/utils"
)

// errVerdictRollback aborts the scan transaction once a rejection verdict is
// decided, so a failed attempt never leaves a partial write behind.
var errVerdictRollback = errors.New("verdict decided, rolling back")

// tokenShape matches the JWT alphabet. Anything else is rejected before the
// token touches crypto or the database.
var tokenShape = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

const (
	minTokenLen = 20
	maxTokenLen = 4096
)

// ValidationService decides whether a scanned QR code admits its holder.
// The scan-count increment runs as a single conditional UPDATE inside a
// transaction, so two gates scanning the same ticket at the same instant
// cannot both consume the last remaining entry.
type ValidationService struct {
	store   *store.TicketStore
	tokens  *TokenService
	audit   *AuditService
	feed    *ScanFeedService
	monitor *monitoring.Monitor
	now     func() types.DateTime
}

func NewValidationService(st *store.TicketStore, tokens *TokenService, audit *AuditService, feed *ScanFeedService, monitor *monitoring.Monitor) *ValidationService {
	return &ValidationService{
		store:   st,
		tokens:  tokens,
		audit:   audit,
		feed:    feed,
		monitor: monitor,
		now:     types.NowDateTime,
	}
}

// Validate runs the full gate check for one submitted token and returns the
// verdict. It never returns an error: every failure mode maps to a verdict
// code, and the attempt is audited, streamed and measured on the way out.
func (s *ValidationService) Validate(rawToken string, meta models.ScanMetadata) *models.ValidationResult {
	started := time.Now()
	result, ticketID := s.validate(rawToken)
	s.afterValidate(result, ticketID, meta, time.Since(started))
	return result
}

func (s *ValidationService) validate(rawToken string) (*models.ValidationResult, string) {
	if rawToken == "" {
		return &models.ValidationResult{Code: models.VerdictTokenRequired}, ""
	}
	if !plausibleToken(rawToken) {
		return &models.ValidationResult{Code: models.VerdictInvalidToken}, ""
	}

	ticketID, err := s.tokens.VerifyToken(rawToken)
	if err != nil {
		return &models.ValidationResult{Code: models.VerdictInvalidToken}, ""
	}

	result := &models.ValidationResult{}
	err = s.store.RunInTx(func(tx dbx.Builder) error {
		ticket, err := s.store.FindByTicketID(tx, ticketID)
		if err != nil {
			return err
		}
		if ticket == nil {
			result.Code = models.VerdictNotFound
			return errVerdictRollback
		}
		result.Ticket = ticket

		switch {
		case ticket.Status == models.TicketStatusCancelled:
			result.Code = models.VerdictCancelled
			return errVerdictRollback
		case ticket.Status == models.TicketStatusRefunded:
			result.Code = models.VerdictRefunded
			return errVerdictRollback
		case ticket.ValidationStatus != models.ValidationStatusActive:
			result.Code = models.VerdictInvalidated
			return errVerdictRollback
		}

		// The UPDATE re-checks status and headroom, so a concurrent scan
		// that slipped in since the read above still cannot overshoot.
		applied, err := s.store.ApplyScan(tx, ticketID, s.now())
		if err != nil {
			return err
		}
		if !applied {
			result.Code = models.VerdictMaxScansExceeded
			return errVerdictRollback
		}

		fresh, err := s.store.FindByTicketID(tx, ticketID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return fmt.Errorf("ticket %s disappeared mid-scan", ticketID)
		}
		result.Ticket = fresh
		result.Code = models.VerdictOK
		return nil
	})

	if err != nil && !errors.Is(err, errVerdictRollback) {
		slog.Error("ticket validation errored",
			"ticket_id", ticketID,
			"error", utils.SanitizeError(err.Error()),
		)
		return &models.ValidationResult{Code: models.VerdictFailed}, ticketID
	}
	return result, ticketID
}

// afterValidate writes the audit trail, feeds the dashboards and updates the
// metrics. None of it can fail the scan: the verdict is already decided.
func (s *ValidationService) afterValidate(result *models.ValidationResult, ticketID string, meta models.ScanMetadata, elapsed time.Duration) {
	entry := &models.ScanLog{
		TicketID:  ticketID,
		Result:    models.ScanResultFailure,
		Reason:    string(result.Code),
		Source:    meta.Source,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}
	if result.Valid() {
		entry.Result = models.ScanResultSuccess
		entry.Reason = ""
	}
	if result.Ticket != nil {
		entry.Ticket = result.Ticket.ID
		entry.TicketID = result.Ticket.TicketID
	}
	s.audit.RecordScan(entry)

	s.feed.PublishVerdict(result, meta)
	s.monitor.TrackValidation(result.Code, meta.Source, elapsed)
}

// plausibleToken rejects obvious garbage before any crypto or database work.
func plausibleToken(token string) bool {
	if len(token) < minTokenLen || len(token) > maxTokenLen {
		return false
	}
	return tokenShape.MatchString(token)
}
