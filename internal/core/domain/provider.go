package domain

// ProviderType identifies a third-party integration provider
type ProviderType string

const (
	// ProviderTypeGoogleCalendar is the Google Calendar integration
	ProviderTypeGoogleCalendar ProviderType = "google_calendar"
)

// ProviderInfo provides display metadata about a provider
type ProviderInfo struct {
	Type        ProviderType `json:"type"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
}

// SupportedProviders returns the integration providers known to the service
func SupportedProviders() []ProviderInfo {
	return []ProviderInfo{
		{
			Type:        ProviderTypeGoogleCalendar,
			Name:        "Google Calendar",
			Description: "Book consultations directly into the firm calendar",
		},
	}
}

// ParseProviderType validates a provider path segment
func ParseProviderType(s string) (ProviderType, error) {
	for _, p := range SupportedProviders() {
		if string(p.Type) == s {
			return p.Type, nil
		}
	}
	return "", ErrUnsupportedProvider
}

// DisplayName returns a human-readable name for the provider
func (p ProviderType) DisplayName() string {
	for _, info := range SupportedProviders() {
		if info.Type == p {
			return info.Name
		}
	}
	return string(p)
}
