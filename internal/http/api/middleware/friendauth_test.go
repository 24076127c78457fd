package middleware_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opensignal/signalhub/internal/http/api/middleware"
	"github.com/stretchr/testify/assert"
)

func signFriendRequest(secret, userID, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(userID))
	mac.Write([]byte(timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

func newFriendAuthRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.FriendAuth(secret))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(middleware.FriendAuthUserIDKey)})
	})
	return router
}

func TestFriendAuthRejectsMissingHeaders(t *testing.T) {
	t.Parallel()
	router := newFriendAuthRouter("sekret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFriendAuthRejectsAbsentSecret(t *testing.T) {
	t.Parallel()
	router := newFriendAuthRouter("")

	now := strconv.FormatInt(time.Now().Unix(), 10)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-Timestamp", now)
	req.Header.Set("X-Signature", "deadbeef")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestFriendAuthRejectsExpiredTimestamp(t *testing.T) {
	t.Parallel()
	router := newFriendAuthRouter("sekret")

	stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	sig := signFriendRequest("sekret", "u1", stale)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-Timestamp", stale)
	req.Header.Set("X-Signature", sig)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFriendAuthRejectsBadSignature(t *testing.T) {
	t.Parallel()
	router := newFriendAuthRouter("sekret")

	now := strconv.FormatInt(time.Now().Unix(), 10)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-Timestamp", now)
	req.Header.Set("X-Signature", signFriendRequest("wrong-secret", "u1", now))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFriendAuthAllowsValidSignature(t *testing.T) {
	t.Parallel()
	router := newFriendAuthRouter("sekret")

	now := strconv.FormatInt(time.Now().Unix(), 10)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-Timestamp", now)
	req.Header.Set("X-Signature", signFriendRequest("sekret", "u1", now))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u1")
}
