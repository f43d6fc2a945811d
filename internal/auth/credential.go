package auth

import "strings"

// CredentialKind tags the variants a bearer value can take.
type CredentialKind int

const (
	CredentialNone CredentialKind = iota
	CredentialLegacy
	CredentialSigned
)

func (k CredentialKind) String() string {
	switch k {
	case CredentialLegacy:
		return "legacy"
	case CredentialSigned:
		return "signed"
	default:
		return "none"
	}
}

// Credential is the raw bearer value plus the variant it was classified as.
// Legacy and LegacyErr are set only for CredentialLegacy.
type Credential struct {
	Kind      CredentialKind
	Raw       string
	Legacy    LegacyToken
	LegacyErr error
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ClassifyCredential decides which credential variant raw is. Legacy prefixes
// take precedence; anything else non-empty is treated as a signed token.
func ClassifyCredential(raw string, legacyEnabled bool) Credential {
	if raw == "" {
		return Credential{Kind: CredentialNone}
	}
	if legacyEnabled {
		if tok, matched, err := ParseLegacy(raw); matched {
			return Credential{Kind: CredentialLegacy, Raw: raw, Legacy: tok, LegacyErr: err}
		}
	}
	return Credential{Kind: CredentialSigned, Raw: raw}
}
