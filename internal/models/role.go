package models

import (
	"strings"

	"github.com/go-playground/validator/v10"

	appvalidator "github.com/charlesng35/picketer/pkg/validator"
)

// Role names granted to accounts. The set is closed.
const (
	RolePicketer = "picketer"
	RoleAdmin    = "admin"
)

var roleRanks = map[string]int{
	RolePicketer: 1,
	RoleAdmin:    2,
}

func init() {
	if err := appvalidator.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return IsValidRole(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// Roles lists every known role ordered by rank.
func Roles() []string {
	return []string{RolePicketer, RoleAdmin}
}

// IsValidRole reports whether role belongs to the closed role set.
func IsValidRole(role string) bool {
	_, ok := roleRanks[role]
	return ok
}

// RoleRank returns the privilege rank of role, or 0 when unknown.
func RoleRank(role string) int {
	return roleRanks[role]
}

// CanGrant reports whether an account holding issuer may hand out granted.
func CanGrant(issuer, granted string) bool {
	issuerRank, ok := roleRanks[issuer]
	if !ok {
		return false
	}
	grantedRank, ok := roleRanks[granted]
	return ok && grantedRank <= issuerRank
}

// NormalizeEmail lower-cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
