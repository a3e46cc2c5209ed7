package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palava-labs/school-portal-api/internal/models"
)

func sessionAt(created, lastActivity time.Time) *models.Session {
	return &models.Session{
		ID:           "sess-1",
		UserID:       "usr-1",
		Role:         models.RoleTeacher,
		CreatedAt:    created,
		LastActivity: lastActivity,
	}
}

func TestEvaluateTouchIdleGapExpires(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sess := sessionAt(now.Add(-25*time.Minute), now.Add(-21*time.Minute))

	outcome := evaluateTouch(sess, now, 20*time.Minute, 30*time.Minute)
	assert.Equal(t, touchExpired, outcome)
}

func TestEvaluateTouchGapExactlyAtLimitSurvives(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sess := sessionAt(now.Add(-20*time.Minute), now.Add(-20*time.Minute))

	outcome := evaluateTouch(sess, now, 20*time.Minute, 30*time.Minute)
	assert.Equal(t, touchRefreshed, outcome)
}

func TestEvaluateTouchRotatesAtInterval(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sess := sessionAt(now.Add(-30*time.Minute), now.Add(-time.Minute))

	outcome := evaluateTouch(sess, now, 20*time.Minute, 30*time.Minute)
	assert.Equal(t, touchRotated, outcome)
}

func TestEvaluateTouchYoungActiveSessionRefreshes(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sess := sessionAt(now.Add(-10*time.Minute), now.Add(-time.Minute))

	outcome := evaluateTouch(sess, now, 20*time.Minute, 30*time.Minute)
	assert.Equal(t, touchRefreshed, outcome)
}

func TestEvaluateTouchIdleWinsOverRotation(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sess := sessionAt(now.Add(-45*time.Minute), now.Add(-25*time.Minute))

	outcome := evaluateTouch(sess, now, 20*time.Minute, 30*time.Minute)
	assert.Equal(t, touchExpired, outcome)
}

func TestApplyTouchRotationIssuesFreshID(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sess := sessionAt(now.Add(-31*time.Minute), now.Add(-time.Minute))

	dropID, rotated := applyTouch(sess, now, 30*time.Minute)
	require.True(t, rotated)
	assert.Equal(t, "sess-1", dropID)
	assert.NotEqual(t, "sess-1", sess.ID)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, now, sess.CreatedAt)
	assert.Equal(t, now, sess.LastActivity)
}

func TestApplyTouchBeforeIntervalKeepsID(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	created := now.Add(-10 * time.Minute)
	sess := sessionAt(created, now.Add(-time.Minute))

	dropID, rotated := applyTouch(sess, now, 30*time.Minute)
	assert.False(t, rotated)
	assert.Empty(t, dropID)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, created, sess.CreatedAt)
	assert.Equal(t, now, sess.LastActivity)
}
