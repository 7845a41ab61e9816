package dto

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Identity is what a verified bearer token tells us about the caller.
type Identity struct {
	UserID string
	Email  string
}
