package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
)

// ErrMalformedLegacyToken marks a legacy prefix followed by a non-numeric id.
var ErrMalformedLegacyToken = errors.New("malformed legacy token")

// LegacyToken is a decoded prefix token. It has no signature or expiry.
type LegacyToken struct {
	Scheme    domain.CredentialScheme
	SubjectID int64
}

// Role maps the legacy scheme to the authority it grants.
func (t LegacyToken) Role() domain.Role {
	if t.Scheme == domain.SchemePharmacyAdmin {
		// Pharmacy admins get the full admin authority; see DESIGN.md.
		return domain.RoleAdmin
	}
	return domain.RoleUser
}

// Identity converts the token into an authenticated identity.
func (t LegacyToken) Identity() domain.Identity {
	return domain.Identity{SubjectID: t.SubjectID, Role: t.Role(), Scheme: t.Scheme}
}

// legacyPrefixes is checked in order; the first match wins.
var legacyPrefixes = []struct {
	prefix string
	scheme domain.CredentialScheme
}{
	{prefix: "customer-token-", scheme: domain.SchemeCustomer},
	{prefix: "temp-token-customer-", scheme: domain.SchemeTempCustomer},
	{prefix: "pharmacy-admin-token-", scheme: domain.SchemePharmacyAdmin},
}

// ParseLegacy recognizes a prefix token. matched is false when no known prefix
// applies; a matched prefix with an unparsable id returns ErrMalformedLegacyToken.
func ParseLegacy(token string) (LegacyToken, bool, error) {
	for _, p := range legacyPrefixes {
		suffix, ok := strings.CutPrefix(token, p.prefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			return LegacyToken{Scheme: p.scheme}, true, fmt.Errorf("%w: %s suffix %q", ErrMalformedLegacyToken, p.scheme, suffix)
		}
		return LegacyToken{Scheme: p.scheme, SubjectID: id}, true, nil
	}
	return LegacyToken{}, false, nil
}
