package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/passgate/internal/domain"
	"github.com/totegamma/passgate/internal/present/rest/presenter"
	"github.com/totegamma/passgate/internal/service"
	"github.com/totegamma/passgate/internal/usecase"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth *service.AuthService
	gate *usecase.GateConfigUsecase
}

func NewAuthMiddleware(
	auth *service.AuthService,
	gate *usecase.GateConfigUsecase,
) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
		gate: gate,
	}
}

// RequireLprToken guards the gate agent endpoints with the shared token.
func (s *AuthMiddleware) RequireLprToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Service.RequireLprToken")
		defer span.End()

		expected := s.gate.Token(ctx)
		if expected == "" {
			span.RecordError(fmt.Errorf("lpr token is not configured"))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "LPR authentication not configured"})
		}

		token := c.Request().Header.Get(domain.LprTokenHeader)
		if token == "" {
			return presenter.Unauthorized(c, "X-LPR-Token header required")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			span.RecordError(fmt.Errorf("lpr token mismatch"))
			return presenter.Unauthorized(c, "Invalid LPR token")
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// IdentifyRequester resolves the bearer token, from the Authorization header
// or the token query parameter (EventSource cannot set headers). Requests
// without a valid token pass through anonymously.
func (s *AuthMiddleware) IdentifyRequester(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Service.IdentifyRequester")
		defer span.End()

		token := c.QueryParam("token")
		authHeader := c.Request().Header.Get("authorization")
		if authHeader != "" {
			split := strings.Split(authHeader, " ")
			if len(split) != 2 || split[0] != "Bearer" {
				span.RecordError(fmt.Errorf("invalid authentication header"))
				goto skipCheckAuthorization
			}
			token = split[1]
		}

		if token != "" {
			requester, err := s.auth.AuthJwt(ctx, token)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyRequester: s.auth.AuthJwt failed"))
				goto skipCheckAuthorization
			}

			ctx = context.WithValue(ctx, domain.RequesterIdCtxKey, requester.ID)
			ctx = context.WithValue(ctx, domain.RequesterRoleCtxKey, requester.Role)
			span.SetAttributes(
				attribute.Int64("RequesterId", int64(requester.ID)),
				attribute.String("RequesterRole", string(requester.Role)),
			)
		}

	skipCheckAuthorization:
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireRoles rejects anonymous requests with 401 and other roles with 403.
func RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requester, ok := Requester(c.Request().Context())
			if !ok {
				return presenter.Unauthorized(c, "authentication required")
			}
			if len(roles) == 0 {
				return next(c)
			}
			for _, role := range roles {
				if requester.Role == role {
					return next(c)
				}
			}
			return presenter.Forbidden(c)
		}
	}
}

// Requester returns the caller identified by IdentifyRequester.
func Requester(ctx context.Context) (domain.Requester, bool) {
	id, ok := ctx.Value(domain.RequesterIdCtxKey).(uint)
	if !ok {
		return domain.Requester{}, false
	}
	role, ok := ctx.Value(domain.RequesterRoleCtxKey).(domain.Role)
	if !ok {
		return domain.Requester{}, false
	}
	return domain.Requester{ID: id, Role: role}, true
}
