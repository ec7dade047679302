package testutil

import (
	"github.com/gin-gonic/gin"
)

// SubjectHeader carries the acting user's Auth0 subject in suite
// requests, standing in for a validated bearer token.
const SubjectHeader = "X-Test-Subject"

// SubjectAuth returns a middleware that stores the SubjectHeader value
// under the context key the real token middleware uses, so RequireRole
// and the user lookup behave exactly as in production. Requests without
// the header stay anonymous.
func SubjectAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if subject := c.GetHeader(SubjectHeader); subject != "" {
			c.Set("user_id", subject)
		}
		c.Next()
	}
}
