package model

import "strings"

type RegisterRequest struct {
	FullName        string `json:"fullName" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,email,max=320"`
	Phone           string `json:"phone" validate:"required,max=32"`
	SchoolName      string `json:"schoolName" validate:"required,max=200"`
	Role            string `json:"role" validate:"required,role"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// Normalize trims identity fields and lower-cases email and role. Passwords are kept verbatim.
func (r *RegisterRequest) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.SchoolName = strings.TrimSpace(r.SchoolName)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// ResetPasswordRequest carries an admin-issued replacement password.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}
