package sessions_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LyDawei/Rate-my-services/sessions"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	created := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	session := &sessions.Session{
		ID:           "sid-1",
		AccountID:    "acct-1",
		Username:     "admin",
		CreatedAt:    created,
		LastActivity: created.Add(5 * time.Minute),
		Data:         map[string]string{"theme": "dark"},
	}

	raw, err := session.Encode()
	require.NoError(t, err)

	decoded, err := sessions.Decode("sid-1", raw)
	require.NoError(t, err)
	require.Equal(t, session, decoded)
}

func TestDecodeLegacyPayloadWithoutTimestamps(t *testing.T) {
	// What the old store wrote: identity only, no lifecycle metadata. The
	// decoder hands back zero times; rejection is the lifecycle manager's
	// job, not the codec's.
	raw := []byte(`{"account_id":"acct-1","username":"admin"}`)

	decoded, err := sessions.Decode("sid-legacy", raw)
	require.NoError(t, err)
	require.Equal(t, "acct-1", decoded.AccountID)
	require.True(t, decoded.CreatedAt.IsZero())
	require.True(t, decoded.LastActivity.IsZero())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := sessions.Decode("sid", []byte("not json"))
	require.Error(t, err)
}
