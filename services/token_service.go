package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"festival-tickets/store"
)

const (
	// tokenIssuer tags every QR token so tokens minted by other tools with
	// the same key material are still rejected.
	tokenIssuer = "festival-tickets"

	// minSecretLen is the floor for the HMAC key. HS256 keys shorter than
	// the hash output weaken the signature.
	minSecretLen = 32
)

var (
	// ErrInvalidToken covers every verification failure: bad signature,
	// expired, malformed, wrong issuer. Callers must not distinguish them.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrTicketNotFound is returned when a token operation references a
	// ticket that does not exist.
	ErrTicketNotFound = errors.New("ticket not found")
)

// TokenService mints and verifies the signed tokens embedded in ticket QR
// codes. Tokens are stateless HMAC signatures over the ticket id, so the
// scanner endpoint can reject tampered codes before touching the database.
type TokenService struct {
	secret []byte
	expiry time.Duration
	store  *store.TicketStore
	now    func() time.Time
}

func NewTokenService(secret string, expiry time.Duration, st *store.TicketStore) (*TokenService, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("qr secret key must be at least %d bytes, got %d", minSecretLen, len(secret))
	}
	if expiry <= 0 {
		expiry = 180 * 24 * time.Hour
	}
	return &TokenService{
		secret: []byte(secret),
		expiry: expiry,
		store:  st,
		now:    time.Now,
	}, nil
}

// GenerateToken signs a fresh token for the given ticket id.
func (s *TokenService) GenerateToken(ticketID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   ticketID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyToken checks signature, issuer and expiry and returns the ticket id
// the token was minted for. Any failure comes back as ErrInvalidToken.
func (s *TokenService) VerifyToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// GetOrCreateToken returns the ticket's stored token while it still
// verifies, otherwise mints a new one and persists it. Reuse keeps already
// distributed QR images working when the ticket page is reloaded.
func (s *TokenService) GetOrCreateToken(ticketID string) (string, error) {
	ticket, err := s.store.FindByTicketID(nil, ticketID)
	if err != nil {
		return "", fmt.Errorf("look up ticket %s: %w", ticketID, err)
	}
	if ticket == nil {
		return "", ErrTicketNotFound
	}

	if ticket.QRToken != "" {
		if subject, err := s.VerifyToken(ticket.QRToken); err == nil && subject == ticketID {
			return ticket.QRToken, nil
		}
	}

	token, err := s.GenerateToken(ticketID)
	if err != nil {
		return "", fmt.Errorf("sign token for %s: %w", ticketID, err)
	}
	if err := s.store.SaveQRToken(ticketID, token); err != nil {
		return "", fmt.Errorf("persist token for %s: %w", ticketID, err)
	}
	return token, nil
}
