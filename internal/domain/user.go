package domain

import "time"

// OAuthProviderGoogle is the only federated provider currently accepted.
const OAuthProviderGoogle = "google"

// Customer is the minimal local account that federated sign-in links to.
type Customer struct {
	ID        int64
	Email     string
	FullName  string
	CreatedAt time.Time
}
