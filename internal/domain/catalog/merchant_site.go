package catalog

import (
	"strings"

	"github.com/erp/channelsync/internal/domain/shared"
)

// MerchantSite is a merchant's registered storefront or plugin installation.
// Reference is the identifier the marketplace uses for the site.
type MerchantSite struct {
	shared.BaseEntity
	Reference string
	Name      string
	URL       string
	Active    bool
}

// NewMerchantSite creates an active site.
func NewMerchantSite(reference, name, url string) (*MerchantSite, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_SITE", "Site reference cannot be empty")
	}
	return &MerchantSite{
		BaseEntity: shared.NewBaseEntity(),
		Reference:  reference,
		Name:       name,
		URL:        url,
		Active:     true,
	}, nil
}
