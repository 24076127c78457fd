package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const friendAuthSkewSeconds = 300

// FriendAuthUserIDKey is the gin context key the friend API controllers read
// the authenticated caller's user id from.
const FriendAuthUserIDKey = "FriendAuthUserID"

// FriendAuth verifies the X-User-Id / X-Timestamp / X-Signature header triple
// on every friend-API request. secret is read once at server startup; an
// empty secret means the operator never configured one, which is a hard 503
// rather than a silently-open endpoint.
func FriendAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			slog.Error("friend auth: no friend API secret configured")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "friend API is not configured"})
			return
		}

		userID := c.GetHeader("X-User-Id")
		timestampHeader := c.GetHeader("X-Timestamp")
		signatureHeader := c.GetHeader("X-Signature")
		if userID == "" || timestampHeader == "" || signatureHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authentication headers"})
			return
		}

		timestamp, err := strconv.ParseInt(timestampHeader, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed timestamp"})
			return
		}
		if math.Abs(time.Since(time.Unix(timestamp, 0)).Seconds()) > friendAuthSkewSeconds {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "timestamp out of range"})
			return
		}

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(userID))
		mac.Write([]byte(timestampHeader))
		expected := mac.Sum(nil)

		given, err := hex.DecodeString(signatureHeader)
		if err != nil || subtle.ConstantTimeCompare(expected, given) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Set(FriendAuthUserIDKey, userID)
		c.Next()
	}
}
