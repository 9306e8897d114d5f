package model

import (
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinBcryptCost is the lowest work factor accepted for password hashes.
const MinBcryptCost = 12

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// AllowedRoles is the closed set of roles a credential may carry.
var AllowedRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

const (
	EntityUsers    = "users"
	EntityStaff    = "staff"
	EntityTeachers = "teachers"
)

// Entities lists the registries exposed under /api/v1/{entity}.
var Entities = []string{EntityUsers, EntityStaff, EntityTeachers}

func IsAllowedRole(role string) bool {
	return slices.Contains(AllowedRoles, strings.ToLower(strings.TrimSpace(role)))
}

func IsEntity(entity string) bool {
	return slices.Contains(Entities, entity)
}

// PhoneMustBeUnique reports whether the registry rejects duplicate phone numbers.
func PhoneMustBeUnique(entity string) bool {
	return entity == EntityTeachers
}

type Credential struct {
	ID           int64     `json:"id"`
	Entity       string    `json:"entity"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	SchoolName   string    `json:"schoolName"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public strips everything a client must never see.
func (c Credential) Public() PublicCredential {
	return PublicCredential{
		ID:         c.ID,
		Entity:     c.Entity,
		FullName:   c.FullName,
		Email:      c.Email,
		Phone:      c.Phone,
		SchoolName: c.SchoolName,
		Role:       c.Role,
		CreatedAt:  c.CreatedAt,
	}
}

type PublicCredential struct {
	ID         int64     `json:"id"`
	Entity     string    `json:"entity"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	SchoolName string    `json:"schoolName"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PublicCredentialList struct {
	Items []PublicCredential `json:"items"`
}

// SessionClaims is the payload carried by a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID     int64  `json:"uid"`
	FullName   string `json:"name"`
	Role       string `json:"role"`
	SchoolName string `json:"school"`
	Entity     string `json:"entity"`
}

// ClaimsFor builds the identity part of a session for the given record.
func ClaimsFor(c Credential) SessionClaims {
	return SessionClaims{
		UserID:     c.ID,
		FullName:   c.FullName,
		Role:       c.Role,
		SchoolName: c.SchoolName,
		Entity:     c.Entity,
	}
}

type LoginResponse struct {
	Token     string           `json:"token"`
	TokenType string           `json:"tokenType"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      PublicCredential `json:"user"`
}
