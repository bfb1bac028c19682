package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/response"
	"github.com/stemsi/kuis-backend/internal/service"
)

// RequireRole checks that the authenticated user has one of roles.
// Must run after RequireJWT.
func RequireRole(denied response.ErrCode, roles ...service.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}

		response.AbortFail(c, http.StatusForbidden, denied)
	}
}

// RequireClassMember rejects students whose token names a different class
// than the :param path parameter. Tokens without a class are let through.
func RequireClassMember(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		classID, err := uuid.Parse(c.Param(param))
		if err != nil {
			response.AbortFail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}

		if own, ok := claims.StudentClassID(); ok && own != classID {
			response.AbortFail(c, http.StatusForbidden, response.ErrNotClassMember)
			return
		}

		c.Next()
	}
}
