package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/helpers"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errInvalidToken = errors.New("invalid or expired token")

// Claims is the token issued by the identity service.
type Claims struct {
	UserID string      `json:"_id"`
	Role   entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Verify(tokenString string) (entity.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return entity.Actor{}, errInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return entity.Actor{}, errInvalidToken
	}

	userID, ok := helpers.ParseObjectID(claims.UserID)
	if !ok || !claims.Role.Valid() {
		return entity.Actor{}, errInvalidToken
	}

	return entity.Actor{UserID: userID, Role: claims.Role}, nil
}

// Authenticate reads the bearer token, or the token query parameter for socket upgrades,
// and stores the caller in the gin context. Blocked users are rejected.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString = ctx.Query("token")
		}
		if tokenString == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token is missing", "code": "Unauthenticated"})
			return
		}

		actor, err := a.Verify(tokenString)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "Unauthenticated"})
			return
		}
		if actor.Role == entity.RoleBlocked {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user is blocked", "code": "Blocked"})
			return
		}

		ctx.Set(helpers.CtxUserIDKey, actor.UserID)
		ctx.Set(helpers.CtxRoleKey, actor.Role)
		ctx.Next()
	}
}

// RequireRole must run after Authenticate.
func RequireRole(roles ...entity.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actor := actorFrom(ctx)
		for _, role := range roles {
			if actor.Role == role {
				ctx.Next()
				return
			}
		}
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not allowed", "code": "Forbidden"})
	}
}

var participantRoles = []entity.Role{entity.RoleUser, entity.RoleOrganizer, entity.RoleAdmin}

func actorFrom(ctx *gin.Context) entity.Actor {
	actor := entity.Actor{}
	if userID, ok := ctx.Get(helpers.CtxUserIDKey); ok {
		actor.UserID, _ = userID.(primitive.ObjectID)
	}
	if role, ok := ctx.Get(helpers.CtxRoleKey); ok {
		actor.Role, _ = role.(entity.Role)
	}
	return actor
}
