package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/apperror"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, err := m.GenerateAccessToken("u-1", "a@example.com")
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestJWTRejectsWrongSecretAndExpiry(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	token, err := m.GenerateAccessToken("u-1", "a@example.com")
	require.NoError(t, err)

	_, err = NewJWTManager("other", time.Minute).ParseAndValidate(token)
	assert.Error(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.ParseAndValidate(token)
	assert.Error(t, err)
}

func TestBcryptPasswordHasher(t *testing.T) {
	h := NewBcryptPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.Error(t, h.Compare(hash, "battery staple"))

	assert.Equal(t, bcrypt.DefaultCost, NewBcryptPasswordHasher(0).cost)
}

type checkerFunc func(ctx context.Context, userID string) (bool, error)

func (f checkerFunc) IsOperator(ctx context.Context, userID string) (bool, error) {
	return f(ctx, userID)
}

func newIdentityRouter(m *JWTManager, checker OperatorChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", AuthRequired(m), LoadIdentity(checker), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "operator": IsOperator(c)})
	})
	r.GET("/ops", AuthRequired(m), LoadIdentity(checker), RequireOperator(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestIdentityMiddleware(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	operators := map[string]bool{"op": true, "member": false}
	checker := checkerFunc(func(_ context.Context, id string) (bool, error) {
		switch id {
		case "retired":
			return false, apperror.New(http.StatusUnauthorized, "user is inactive")
		case "flaky":
			return false, errors.New("connection reset")
		}
		isOp, ok := operators[id]
		if !ok {
			return false, apperror.New(http.StatusNotFound, "user not found")
		}
		return isOp, nil
	})
	r := newIdentityRouter(m, checker)

	call := func(path, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	bearer := func(id string) string {
		token, err := m.GenerateAccessToken(id, id+"@example.com")
		require.NoError(t, err)
		return "Bearer " + token
	}

	assert.Equal(t, http.StatusUnauthorized, call("/whoami", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/whoami", "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/whoami", "Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/whoami", bearer("ghost")).Code)
	assert.Equal(t, http.StatusUnauthorized, call("/whoami", bearer("retired")).Code)
	assert.Equal(t, http.StatusInternalServerError, call("/whoami", bearer("flaky")).Code)

	w := call("/whoami", bearer("member"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"member","operator":false}`, w.Body.String())

	assert.Equal(t, http.StatusForbidden, call("/ops", bearer("member")).Code)
	assert.Equal(t, http.StatusNoContent, call("/ops", bearer("op")).Code)
}

func TestLoadIdentityStoreFailureIsServerError(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	cause := errors.New("connection reset")
	var reached bool

	gin.SetMode(gin.TestMode)
	r := gin.New()
	var logged []*gin.Error
	r.Use(func(c *gin.Context) {
		c.Next()
		logged = c.Errors
	})
	r.GET("/whoami", AuthRequired(m), LoadIdentity(checkerFunc(func(context.Context, string) (bool, error) {
		return false, cause
	})), func(c *gin.Context) {
		reached = true
	})

	token, err := m.GenerateAccessToken("u-1", "a@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.False(t, reached, "the chain stops at LoadIdentity")
	require.Len(t, logged, 1, "the store error is handed to the error logger")
	assert.ErrorIs(t, logged[0].Err, cause)
}
