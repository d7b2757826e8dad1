package middlewares

import (
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"ucc/src/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

// OwnerKeyMiddleware resolves who owns the cart for this request. A signed
// in guest carries a bearer token; anonymous guests carry their session id
// in X-Session-ID. Either way downstream handlers read one opaque ownerKey
// and never branch on auth state.
func OwnerKeyMiddleware(ctx *gin.Context) {
	bearerToken := ctx.Request.Header.Get("Authorization")
	if strings.HasPrefix(bearerToken, "Bearer") {
		reqToken := strings.Split(bearerToken, " ")[1]
		claims := &types.Claims{}
		tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
			return jwtKey, nil
		})
		if err != nil {
			log.Printf("token error: %s\n", err.Error())
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !tkn.Valid || claims.Subject == "" {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		ctx.Set("ownerKey", fmt.Sprintf("user:%s", claims.Subject))
		ctx.Set("sub", claims.Subject)
		return
	}
	sessionId := ctx.GetHeader("X-Session-ID")
	if sessionId == "" {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	ctx.Set("ownerKey", fmt.Sprintf("anon:%s", sessionId))
}

// AdminOnly gates the operational endpoints behind a shared secret.
func AdminOnly(ctx *gin.Context) {
	secret := os.Getenv("ADMIN_SECRET")
	provided := ctx.GetHeader("x-admin-secret")
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(provided)) != 1 {
		ctx.AbortWithStatus(http.StatusForbidden)
		return
	}
}
