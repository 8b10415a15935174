package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return requireFields(map[string]string{"email": r.Email, "password": r.Password})
}

// RegisterRequest is also the payload of admin user creation.
type RegisterRequest struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	MobileNumber   string  `json:"mobile_number"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

func (r RegisterRequest) Validate() error {
	return requireFields(map[string]string{
		"first_name":    r.FirstName,
		"last_name":     r.LastName,
		"email":         r.Email,
		"password":      r.Password,
		"mobile_number": r.MobileNumber,
	})
}

type VerifyOTPRequest struct {
	Email   string `json:"email"`
	OTPCode string `json:"otp_code"`
}

func (r VerifyOTPRequest) Validate() error {
	return requireFields(map[string]string{"email": r.Email, "otp_code": r.OTPCode})
}

// UpdateUserRequest carries a partial update; nil fields are left untouched.
type UpdateUserRequest struct {
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	Email          *string `json:"email,omitempty"`
	MobileNumber   *string `json:"mobile_number,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

func (r UpdateUserRequest) Empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Email == nil &&
		r.MobileNumber == nil && r.ProfilePicture == nil
}

// MessageResponse is the {message} body most endpoints answer with.
type MessageResponse struct {
	Message string `json:"message"`
}

func requireFields(fields map[string]string) error {
	var missing []string
	for _, name := range []string{"first_name", "last_name", "email", "password", "mobile_number", "otp_code"} {
		v, ok := fields[name]
		if ok && strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", common.ErrValidation, strings.Join(missing, ", "))
	}
	if email, ok := fields["email"]; ok && !strings.Contains(email, "@") {
		return fmt.Errorf("%w: malformed email %q", common.ErrValidation, email)
	}
	return nil
}
