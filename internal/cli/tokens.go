package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"portfolio/cms/internal/gateway"
)

const keyringService = "portfolio-cms"

type storedTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// KeyringTokens keeps the API token pair in the OS keyring. An override, e.g.
// from PORTFOLIO_TOKEN, is returned as is and never stored.
type KeyringTokens struct {
	user     string
	override string
}

func NewKeyringTokens(user, override string) *KeyringTokens {
	if strings.TrimSpace(user) == "" {
		user = "admin"
	}
	return &KeyringTokens{user: user, override: strings.TrimSpace(override)}
}

// Token implements gateway.TokenSource. No stored token is not an error.
func (k *KeyringTokens) Token(context.Context) (string, error) {
	if k.override != "" {
		return k.override, nil
	}
	stored, err := k.load()
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return stored.AccessToken, nil
}

func (k *KeyringTokens) RefreshToken() (string, error) {
	stored, err := k.load()
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return stored.RefreshToken, nil
}

func (k *KeyringTokens) Save(token gateway.Token) error {
	if token.AccessToken == "" {
		return errors.New("access token is empty")
	}
	payload, err := json.Marshal(storedTokens{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken})
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringService, k.user, string(payload)); err != nil {
		return fmt.Errorf("store token in keyring: %w", err)
	}
	return nil
}

func (k *KeyringTokens) Clear() error {
	err := keyring.Delete(keyringService, k.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("remove token from keyring: %w", err)
	}
	return nil
}

func (k *KeyringTokens) load() (storedTokens, error) {
	raw, err := keyring.Get(keyringService, k.user)
	if err != nil {
		return storedTokens{}, err
	}
	var stored storedTokens
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		// tokens written before the pair format was a bare access token
		return storedTokens{AccessToken: raw}, nil
	}
	return stored, nil
}
