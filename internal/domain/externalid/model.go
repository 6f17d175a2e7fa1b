package externalid

import (
	"fmt"
	"strings"

	"github.com/riskibarqy/sportsdata-producer/internal/platform/hashing"
)

// Provider identifies the upstream data source of a document.
type Provider int

const (
	ProviderESPN         Provider = 0
	ProviderSportsDataIO Provider = 1
	ProviderCBS          Provider = 2
	ProviderYahoo        Provider = 3
)

var providerNames = map[Provider]string{
	ProviderESPN:         "espn",
	ProviderSportsDataIO: "sportsdataio",
	ProviderCBS:          "cbs",
	ProviderYahoo:        "yahoo",
}

func (p Provider) String() string {
	if name, ok := providerNames[p]; ok {
		return name
	}
	return fmt.Sprintf("provider(%d)", int(p))
}

func (p Provider) Valid() bool {
	_, ok := providerNames[p]
	return ok
}

func ParseProvider(raw string) (Provider, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for p, name := range providerNames {
		if name == value {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown provider %q", raw)
}

// ExternalID links an entity to its identity at a provider.
type ExternalID struct {
	ID            string
	ParentID      string
	Value         string
	Provider      Provider
	SourceURL     string
	SourceURLHash string
}

// SourceURLHash is the key used to match documents to existing rows.
func SourceURLHash(sourceURL string) string {
	return hashing.HashURL(sourceURL, true)
}

// New builds an external id with its source url hash filled in.
func New(id, parentID, value string, provider Provider, sourceURL string) ExternalID {
	return ExternalID{
		ID:            id,
		ParentID:      parentID,
		Value:         strings.TrimSpace(value),
		Provider:      provider,
		SourceURL:     strings.TrimSpace(sourceURL),
		SourceURLHash: SourceURLHash(sourceURL),
	}
}

func (e ExternalID) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("external id is required")
	}
	if e.ParentID == "" {
		return fmt.Errorf("external id parent is required")
	}
	if e.Value == "" {
		return fmt.Errorf("external id value is required")
	}
	if !e.Provider.Valid() {
		return fmt.Errorf("external id provider %d is unknown", int(e.Provider))
	}
	if e.SourceURL == "" || e.SourceURLHash == "" {
		return fmt.Errorf("external id source url is required")
	}
	return nil
}

// Find returns the first external id for provider.
func Find(ids []ExternalID, provider Provider) (ExternalID, bool) {
	for _, e := range ids {
		if e.Provider == provider {
			return e, true
		}
	}
	return ExternalID{}, false
}

// ContainsHash reports whether ids already hold hash for provider.
func ContainsHash(ids []ExternalID, provider Provider, hash string) bool {
	for _, e := range ids {
		if e.Provider == provider && e.SourceURLHash == hash {
			return true
		}
	}
	return false
}
