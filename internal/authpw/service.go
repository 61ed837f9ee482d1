// Package authpw checks the single admin credential.
package authpw

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrNotConfigured      = errors.New("admin password is not configured")
)

// Service holds the admin username and a bcrypt hash of the password.
type Service struct {
	username string
	hash     []byte
}

// NewService accepts either a plaintext password or an existing bcrypt hash.
// An empty password yields a service that rejects every sign-in.
func NewService(username, password string) (*Service, error) {
	s := &Service{username: strings.TrimSpace(username)}
	if password == "" {
		return s, nil
	}
	if isBcryptHash(password) {
		if _, err := bcrypt.Cost([]byte(password)); err != nil {
			return nil, fmt.Errorf("parse admin password hash: %w", err)
		}
		s.hash = []byte(password)
		return s, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	s.hash = hash
	return s, nil
}

func isBcryptHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}

func (s *Service) Configured() bool {
	return len(s.hash) > 0
}

func (s *Service) Username() string {
	return s.username
}

// SignIn verifies the pair; the username comparison is constant time.
func (s *Service) SignIn(username, password string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(s.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.hash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateToken creates a secure random token
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
