package middleware

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/palava-labs/school-portal-api/internal/models"
	"github.com/palava-labs/school-portal-api/internal/session"
	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
	"github.com/palava-labs/school-portal-api/pkg/response"
)

// ContextActorKey is the gin context key storing the resolved actor.
const ContextActorKey = "currentActor"

// ContextSessionKey is the gin context key storing the live session id. It
// reflects a rotation, so logout always destroys the current id.
const ContextSessionKey = "currentSessionID"

// RotatedTokenHeader carries the replacement token when the session id was
// rotated mid-flight. Clients must adopt it for subsequent requests.
const RotatedTokenHeader = "X-Session-Token"

type teacherLookup interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

type studentLookup interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// Session protects routes by requiring a live session token. On each request
// it validates the signed token, touches the Redis session (which enforces
// the idle timeout and the periodic id rotation), resolves the role-specific
// profile ids and stores the resulting actor in the gin context.
func Session(tokens *session.TokenCodec, store *session.Store, teachers teacherLookup, students studentLookup, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		sessionID, err := tokens.Decode(parts[1])
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token"))
			c.Abort()
			return
		}

		sess, rotated, err := store.Touch(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				response.Error(c, appErrors.ErrSessionExpired)
			} else {
				logger.Error("session lookup failed", zap.Error(err))
				response.Error(c, appErrors.ErrInternal)
			}
			c.Abort()
			return
		}
		if rotated {
			token, err := tokens.Encode(sess)
			if err != nil {
				logger.Error("rotated token issue failed", zap.Error(err), zap.String("user_id", sess.UserID))
				response.Error(c, appErrors.ErrInternal)
				c.Abort()
				return
			}
			c.Header(RotatedTokenHeader, token)
		}

		actor, err := resolveActor(c.Request.Context(), sess, teachers, students, logger)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextActorKey, actor)
		c.Set(ContextSessionKey, sess.ID)
		c.Next()
	}
}

// resolveActor attaches the teacher or student profile id to the session
// identity. A teacher account without a profile row is kept signed in but
// carries an empty TeacherID, which the visibility layer treats as seeing
// nothing. A student account without a student record cannot be scoped to
// anything and is rejected.
func resolveActor(ctx context.Context, sess *models.Session, teachers teacherLookup, students studentLookup, logger *zap.Logger) (models.Actor, error) {
	actor := models.Actor{UserID: sess.UserID, Email: sess.Email, Role: sess.Role}
	switch sess.Role {
	case models.RoleTeacher:
		teacher, err := teachers.FindByUserID(ctx, sess.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				logger.Warn("teacher account has no profile", zap.String("user_id", sess.UserID))
				return actor, nil
			}
			logger.Error("teacher profile lookup failed", zap.Error(err), zap.String("user_id", sess.UserID))
			return actor, appErrors.ErrInternal
		}
		actor.TeacherID = teacher.ID
	case models.RoleStudent:
		student, err := students.FindByUserID(ctx, sess.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				logger.Warn("student account has no student record", zap.String("user_id", sess.UserID))
				return actor, appErrors.Clone(appErrors.ErrForbidden, "no student record linked to this account")
			}
			logger.Error("student record lookup failed", zap.Error(err), zap.String("user_id", sess.UserID))
			return actor, appErrors.ErrInternal
		}
		actor.StudentID = student.ID
	}
	return actor, nil
}
