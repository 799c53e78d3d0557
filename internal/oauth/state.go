package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
)

var ErrInvalidState = httperr.New(httperr.KindValidation, "invalid_state")

// State travels through the provider's consent screen and back to the callback.
type State struct {
	TenantID  string `json:"tenantId"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
}

func NewState(tenantID string, now time.Time) (State, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return State{}, err
	}
	return State{
		TenantID:  tenantID,
		Timestamp: now.UnixMilli(),
		Nonce:     hex.EncodeToString(nonce),
	}, nil
}

func EncodeState(s State) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func ParseState(raw string) (State, error) {
	b, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		// Some providers hand the state back with standard padding characters.
		if b, err = base64.StdEncoding.DecodeString(raw); err != nil {
			return State{}, ErrInvalidState
		}
	}

	var s State
	if err := json.Unmarshal(b, &s); err != nil || s.TenantID == "" {
		return State{}, ErrInvalidState
	}
	return s, nil
}

// Issued returns when the state was created.
func (s State) Issued() time.Time {
	return time.UnixMilli(s.Timestamp)
}
