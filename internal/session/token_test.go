package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palava-labs/school-portal-api/internal/models"
)

func TestTokenCodecRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)
	sess := &models.Session{ID: "sess-1", UserID: "usr-1", Role: models.RoleTeacher}

	token, err := codec.Encode(sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sessionID, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sessionID)
}

func TestTokenCodecRejectsWrongSecret(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)
	other := NewTokenCodec("different-secret", time.Hour)
	sess := &models.Session{ID: "sess-1", UserID: "usr-1", Role: models.RoleTeacher}

	token, err := codec.Encode(sess)
	require.NoError(t, err)

	_, err = other.Decode(token)
	assert.Error(t, err)
}

func TestTokenCodecRejectsExpiredToken(t *testing.T) {
	codec := NewTokenCodec("test-secret", -time.Minute)
	sess := &models.Session{ID: "sess-1", UserID: "usr-1", Role: models.RoleStudent}

	token, err := codec.Encode(sess)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.Error(t, err)
}

func TestTokenCodecRejectsGarbage(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	_, err := codec.Decode("not-a-token")
	assert.Error(t, err)
}
