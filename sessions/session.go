// Package sessions holds the authenticated-session model shared by the auth
// service and the session stores.
package sessions

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Session is the server-side state behind one admin session cookie. The
// client only ever holds the opaque ID; everything else stays in the store.
type Session struct {
	ID           string            // Opaque token handed to the client
	AccountID    string            // Authenticated account, weak reference
	Username     string            // Denormalized for log lines
	CreatedAt    time.Time         // Start of the absolute-age clock
	LastActivity time.Time         // Start of the idle clock, refreshed per request
	Data         map[string]string // Arbitrary serialized session payload
}

// payload is the wire shape persisted in the store's sess column. The field
// names are part of the stored format; changing them orphans live sessions.
type payload struct {
	AccountID    string            `json:"account_id"`
	Username     string            `json:"username"`
	CreatedAt    int64             `json:"created_at,omitempty"`    // epoch ms
	LastActivity int64             `json:"last_activity,omitempty"` // epoch ms
	Data         map[string]string `json:"data,omitempty"`
}

// Encode serializes the session payload for storage.
func (s *Session) Encode() ([]byte, error) {
	p := payload{
		AccountID: s.AccountID,
		Username:  s.Username,
		Data:      s.Data,
	}
	if !s.CreatedAt.IsZero() {
		p.CreatedAt = s.CreatedAt.UnixMilli()
	}
	if !s.LastActivity.IsZero() {
		p.LastActivity = s.LastActivity.UnixMilli()
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "[Session.Encode] marshal")
	}
	return raw, nil
}

// Decode deserializes a stored payload into a Session with the given ID.
// Legacy rows may lack the timestamp fields; they decode to zero times and
// the lifecycle manager rejects them as structurally invalid rather than
// repairing them.
func Decode(id string, raw []byte) (*Session, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "[sessions.Decode] unmarshal")
	}
	s := &Session{
		ID:        id,
		AccountID: p.AccountID,
		Username:  p.Username,
		Data:      p.Data,
	}
	if p.CreatedAt != 0 {
		s.CreatedAt = time.UnixMilli(p.CreatedAt).UTC()
	}
	if p.LastActivity != 0 {
		s.LastActivity = time.UnixMilli(p.LastActivity).UTC()
	}
	return s, nil
}
