package wallet

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const saveURLBase = "https://pay.google.com/gp/v/save/"

// GooglePass issues "Save to Google Wallet" links. The link embeds a signed
// JWT describing a generic pass object, so no object has to be registered
// with Google ahead of time.
type GooglePass struct {
	issuerID string
	classID  string
	email    string
	key      *rsa.PrivateKey
}

func NewGooglePass(issuerID, classSuffix, serviceAccountEmail, privateKeyPEM string) (*GooglePass, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("wallet: parse signing key: %w", err)
	}
	return &GooglePass{
		issuerID: issuerID,
		classID:  issuerID + "." + classSuffix,
		email:    serviceAccountEmail,
		key:      key,
	}, nil
}

func (g *GooglePass) Provider() Provider {
	return ProviderGoogle
}

func (g *GooglePass) SaveURL(pass *Pass) (string, error) {
	object := map[string]any{
		"id":      g.issuerID + "." + pass.TicketID,
		"classId": g.classID,
		"state":   "ACTIVE",
		"cardTitle": map[string]any{
			"defaultValue": map[string]any{"language": "en-US", "value": pass.EventName},
		},
		"header": map[string]any{
			"defaultValue": map[string]any{"language": "en-US", "value": pass.Attendee},
		},
		"subheader": map[string]any{
			"defaultValue": map[string]any{"language": "en-US", "value": pass.TicketType},
		},
		"barcode": map[string]any{
			"type":  "QR_CODE",
			"value": pass.Token,
		},
		"textModulesData": []map[string]any{
			{"id": "ticket_id", "header": "Ticket", "body": pass.TicketID},
			{"id": "event_id", "header": "Event", "body": pass.EventID},
		},
	}

	claims := jwt.MapClaims{
		"iss": g.email,
		"aud": "google",
		"typ": "savetowallet",
		"iat": time.Now().Unix(),
		"payload": map[string]any{
			"genericObjects": []map[string]any{object},
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(g.key)
	if err != nil {
		return "", fmt.Errorf("wallet: sign pass: %w", err)
	}
	return saveURLBase + signed, nil
}
