package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

const (
	contextActorKey = "actor"
	tokenAudience   = "Mahudhurio"
)

var signingMethod = jwt.SigningMethodHS256

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Name  string    `json:"name,omitempty"`
	Email string    `json:"email,omitempty"`
	Role  user.Role `json:"role,omitempty"`
}

func GetUserClaims(usr user.User, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.FormatInt(usr.ID, 10),
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Name:  usr.Name,
		Email: usr.Email,
		Role:  usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(signingMethod, claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(tokenString, secretKey string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secretKey), nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func bearerToken(ctx echo.Context) (string, bool) {
	parts := strings.SplitN(ctx.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// authMiddleware verifies the bearer token then loads the acting user, with its class assignments, into the context.
func authMiddleware(secretKey string, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := bearerToken(ctx)
			if !ok {
				return errMissingToken
			}
			claims, err := parseToken(token, secretKey)
			if err != nil {
				return errInvalidToken
			}
			id, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				return errInvalidToken
			}

			actor, err := svc.ResolveActor(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errInvalidToken
				}
				return errors.Wrap(err, "resolving actor")
			}
			ctx.Set(contextActorKey, actor)
			return next(ctx)
		}
	}
}

func getContextActor(ctx echo.Context) (*user.Actor, error) {
	if actor, ok := ctx.Get(contextActorKey).(*user.Actor); ok && actor != nil {
		return actor, nil
	}
	return nil, core.ErrUnauthenticated
}
