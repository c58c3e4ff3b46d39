package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-class-api/internal/middleware"
	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// respondCached writes a success envelope and records whether the cache served it.
func respondCached(c *gin.Context, status int, data interface{}, hit bool) {
	middleware.SetCacheHit(c, hit)
	response.JSON(c, status, data, nil, middleware.ExtractMeta(c))
}
