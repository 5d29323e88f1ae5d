package billing

import (
	"strings"

	"github.com/ManuelReschke/PayFox/app/models"
)

// Dodo product ids sold through checkout. The whitelist is intentionally
// static; plans change rarely and an env-driven list would only widen the
// attack surface of the checkout endpoint.
const (
	ProductBasic = "pdt_aCU0mubTSuDWGXLcIE9fw"
	ProductPro   = "pdt_YQiSHzKDpVGlDUuYaSCR2"
	ProductMax   = "pdt_NKyYYMcKtZ8Hpdfmt4fB4"
)

// IsKnownProduct reports whether the product id may be checked out.
func IsKnownProduct(productID string) bool {
	switch strings.TrimSpace(productID) {
	case ProductBasic, ProductPro, ProductMax:
		return true
	default:
		return false
	}
}

// PlanTypeForProduct maps a provider product id to the internal plan
// label. Unrecognized ids fall open to the basic tier; a paid-for event
// with an unknown product must still produce a row rather than vanish.
func PlanTypeForProduct(productID string) string {
	switch strings.TrimSpace(productID) {
	case ProductPro:
		return models.PlanTypePro
	case ProductMax:
		return models.PlanTypeMax
	default:
		return models.PlanTypeBasic
	}
}
