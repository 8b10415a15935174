package models

// LoginResponse is the body of a successful POST /auth/login.
type LoginResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type UserListResponse struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}

// UserResponse answers the single-user admin endpoints.
type UserResponse struct {
	Message string `json:"message,omitempty"`
	User    User   `json:"user"`
}
