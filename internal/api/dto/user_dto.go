package dto

import "time"

// FederatedLoginRequest payload for POST /api/v1/auth/google.
type FederatedLoginRequest struct {
	Provider string `json:"provider"`
	IDToken  string `json:"idToken"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CustomerResponse is the customer an access token was issued for.
type CustomerResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// IdentityResponse echoes the authenticated caller.
type IdentityResponse struct {
	SubjectID  int64  `json:"subject_id"`
	Role       string `json:"role"`
	PharmacyID *int64 `json:"pharmacy_id,omitempty"`
	Scheme     string `json:"scheme"`
}

// WatchersResponse lists the admins watching a customer.
type WatchersResponse struct {
	CustomerID int64   `json:"customer_id"`
	AdminIDs   []int64 `json:"admin_ids"`
}

// DeliveryResponse reports how many live connections accepted a message.
type DeliveryResponse struct {
	Delivered int `json:"delivered"`
}
