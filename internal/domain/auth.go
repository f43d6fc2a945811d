package domain

import "strings"

// Role is the authority carried by an authenticated identity.
type Role string

const (
	RoleCustomer      Role = "CUSTOMER"
	RolePharmacist    Role = "PHARMACIST"
	RolePharmacyAdmin Role = "PHARMACY_ADMIN"
	RoleAdmin         Role = "ADMIN"
	// RoleUser is granted to customers presenting a legacy prefix token.
	RoleUser Role = "USER"
)

// ParseRole normalizes a role claim. Only roles that signed tokens may carry are accepted.
func ParseRole(raw string) (Role, bool) {
	switch role := Role(strings.ToUpper(strings.TrimSpace(raw))); role {
	case RoleCustomer, RolePharmacist, RolePharmacyAdmin, RoleAdmin:
		return role, true
	default:
		return "", false
	}
}

// CredentialScheme records which credential format produced an identity.
type CredentialScheme string

const (
	SchemeSigned        CredentialScheme = "signed"
	SchemeCustomer      CredentialScheme = "customer"
	SchemeTempCustomer  CredentialScheme = "temp-customer"
	SchemePharmacyAdmin CredentialScheme = "pharmacy-admin"
)

// Identity is the authenticated caller of one request or connection.
// It is built once and never mutated.
type Identity struct {
	SubjectID  int64
	Role       Role
	PharmacyID *int64
	Scheme     CredentialScheme
}

// HasRole reports whether the identity holds one of the given roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// ExternalProfile is the normalized result of a federated identity check.
type ExternalProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// ConnectionAttributes are resolved once during a websocket handshake.
type ConnectionAttributes struct {
	Role          string
	UserID        *int64
	PrincipalName string
}

// IsAdmin reports whether the connection was opened by an admin session.
func (a ConnectionAttributes) IsAdmin() bool {
	return a.Role == "admin"
}
