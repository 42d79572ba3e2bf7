package middleware

import (
	"context"
	"net/http"
	"strings"

	"restopos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ClaimsKey = "claims"
)

// Roles issued by the identity provider.
const (
	RoleCajero        = "cajero"
	RoleSupervisor    = "supervisor"
	RoleAdministrador = "administrador"
)

// JWTClaims are the claims this service reads from tokens issued elsewhere.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	BranchID string `json:"branch_id"`
	Rol      string `json:"rol"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token invalido o expirado"))
			return
		}
		if _, err := uuid.Parse(claims.UserID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token sin usuario valido"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims, ok := c.MustGet(ClaimsKey).(*JWTClaims)
		if !ok || !allowed[claims.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// RequireBranch restricts routes carrying a :branch_id param to the caller's
// own branch. Administrators see every branch.
func RequireBranch(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		if claims.Rol == RoleAdministrador || strings.EqualFold(claims.BranchID, c.Param(param)) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Sin acceso a esta sucursal"))
	}
}

// BranchLookup resolves the branch that owns the record with the given id.
// found is false when no such record exists.
type BranchLookup func(ctx context.Context, id uuid.UUID) (branchID uuid.UUID, found bool, err error)

// RequireOwnedBranch restricts routes keyed by a shift or register id to
// records of the caller's branch. Malformed or unknown ids pass through and
// the handler answers 400/404.
func RequireOwnedBranch(param string, lookup BranchLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		if claims.Rol == RoleAdministrador {
			c.Next()
			return
		}
		id, err := uuid.Parse(c.Param(param))
		if err != nil {
			c.Next()
			return
		}
		branchID, found, err := lookup(c.Request.Context(), id)
		if err != nil {
			log.Error().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("branch lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("Error interno, intente nuevamente"))
			return
		}
		if found && !strings.EqualFold(claims.BranchID, branchID.String()) {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Sin acceso a esta sucursal"))
			return
		}
		c.Next()
	}
}

// BranchScope is the branch the caller is restricted to, nil for
// administrators. A token without a valid branch matches none.
func BranchScope(c *gin.Context) *uuid.UUID {
	claims := GetClaims(c)
	if claims != nil && claims.Rol == RoleAdministrador {
		return nil
	}
	id := uuid.Nil
	if claims != nil {
		if parsed, err := uuid.Parse(claims.BranchID); err == nil {
			id = parsed
		}
	}
	return &id
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	claims, _ := c.MustGet(ClaimsKey).(*JWTClaims)
	return claims
}

// ActorID returns the authenticated user id. JWTAuth guarantees it parses.
func ActorID(c *gin.Context) uuid.UUID {
	id, _ := uuid.Parse(GetClaims(c).UserID)
	return id
}
