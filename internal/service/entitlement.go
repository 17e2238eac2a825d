package service

import "iap-service/internal/models"

// entitlement describes the profile change a purchase grants. An empty
// Role means the current role is kept; CreditsDelta is additive.
type entitlement struct {
	Role         string
	CreditsDelta int64
}

// grantsNothing reports whether the purchase leaves the profile untouched
func (e entitlement) grantsNothing() bool {
	return e.Role == "" && e.CreditsDelta == 0
}

// computeEntitlement maps a catalogued product onto a profile change.
// Role upgrades are unconditional: Pro_User sets "paid" even for a profile
// that is already "unlimited" (there is no downgrade guard). A catalogued
// product outside the three recognized ids grants nothing; the purchase is
// still recorded.
func computeEntitlement(product *models.Product) entitlement {
	switch product.ID {
	case models.ProductProUser:
		return entitlement{Role: models.RolePaid}
	case models.ProductUnlimitedTier:
		return entitlement{Role: models.RoleUnlimited}
	case models.ProductSingleEventCredit:
		delta := int64(1)
		if product.Credits != nil && *product.Credits != 0 {
			delta = *product.Credits
		}
		return entitlement{CreditsDelta: delta}
	default:
		return entitlement{}
	}
}
