package domain

// LoginRequest is the single-user login payload.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries a fresh token pair.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
