package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/passgate/internal/domain"
	"github.com/totegamma/passgate/jwt"
)

var tracer = otel.Tracer("auth")

type AuthService struct {
	secret string
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{
		secret: secret,
	}
}

// AuthJwt resolves a portal session token to the requester it names.
func (s *AuthService) AuthJwt(ctx context.Context, token string) (*domain.Requester, error) {
	_, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	claims, err := jwt.Validate(token, s.secret)
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return nil, err
	}

	if claims.ID == 0 {
		err := fmt.Errorf("token has no user id")
		span.RecordError(err)
		return nil, err
	}

	role := domain.Role(claims.Role)
	switch role {
	case domain.RoleUser, domain.RoleSecurity, domain.RoleAdmin:
	default:
		err := fmt.Errorf("unknown role: %s", claims.Role)
		span.RecordError(err)
		return nil, err
	}

	return &domain.Requester{ID: claims.ID, Role: role}, nil
}
