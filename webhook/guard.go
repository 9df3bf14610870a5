package webhook

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SecretHeader carries the shared secret on event and probe requests.
const SecretHeader = "X-Relay-Secret"

// RequireSecret rejects requests whose SecretHeader does not match secret. An empty
// secret rejects everything.
func RequireSecret(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "relay secret is not configured"})
			return
		}
		got := []byte(c.GetHeader(SecretHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
