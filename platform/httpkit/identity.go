package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// Principal is the caller resolved by AuthRequired.
type Principal struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the principal carries role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// GetPrincipal extracts the Principal from a Gin context.
// The second return is false when the request was not authenticated.
func GetPrincipal(c *gin.Context) (Principal, bool) {
	subject, ok := c.Get(ContextSubjectKey)
	if !ok {
		return Principal{}, false
	}
	sub, _ := subject.(string)
	roles, _ := c.Get(ContextRolesKey)
	roleList, _ := roles.([]string)
	return Principal{Subject: sub, Roles: roleList}, true
}
