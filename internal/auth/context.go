package auth

import "github.com/gin-gonic/gin"

const (
	ctxAdminID    = "adminID"
	ctxAdminEmail = "adminEmail"
)

// GetAdminID returns the signed-in staff member's ID, or 0.
func GetAdminID(c *gin.Context) int64 {
	if v, ok := c.Get(ctxAdminID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// GetAdminEmail returns the signed-in staff member's email, or "".
func GetAdminEmail(c *gin.Context) string {
	return c.GetString(ctxAdminEmail)
}
