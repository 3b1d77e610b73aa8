package wallet

import "fmt"

// Provider identifies a mobile wallet vendor.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// Pass carries the ticket fields rendered on a wallet pass. Token is the
// signed QR payload the gate scanner reads.
type Pass struct {
	TicketID   string
	EventID    string
	EventName  string
	TicketType string
	Attendee   string
	Token      string
}

// PassProvider builds save links for one wallet vendor.
type PassProvider interface {
	Provider() Provider
	SaveURL(pass *Pass) (string, error)
}

// Registry holds the configured wallet providers.
type Registry struct {
	providers map[Provider]PassProvider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[Provider]PassProvider)}
}

func (r *Registry) Register(p PassProvider) {
	r.providers[p.Provider()] = p
}

func (r *Registry) Get(provider Provider) (PassProvider, error) {
	p, exists := r.providers[provider]
	if !exists {
		return nil, fmt.Errorf("wallet provider %s not configured", provider)
	}
	return p, nil
}

func (r *Registry) Available() []Provider {
	providers := make([]Provider, 0, len(r.providers))
	for provider := range r.providers {
		providers = append(providers, provider)
	}
	return providers
}
