package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/internal/auth"
	"github.com/mmynk/groupledger/internal/middleware"
)

// AuthServiceName is the fully-qualified name of the AuthService.
const AuthServiceName = "groupledger.v1.AuthService"

const IssueTokenProcedure = "/" + AuthServiceName + "/IssueToken"

// AuthService hands out bearer tokens for arbitrary addresses. It has no
// proof of key ownership, so it is only mounted in development setups.
type AuthService struct {
	jwtManager *auth.JWTManager
	logger     *slog.Logger
}

// NewAuthService creates a new token-issuing service.
func NewAuthService(jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		jwtManager: jwtManager,
		logger:     logger.With("component", "auth_service"),
	}
}

// NewAuthServiceHandler builds an HTTP handler serving the AuthService.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{
		WithJSON(),
		connect.WithInterceptors(middleware.LoggingInterceptor(svc.logger)),
	}, opts...)

	mux := http.NewServeMux()
	mux.Handle(IssueTokenProcedure, unary(IssueTokenProcedure, svc.IssueToken, opts...))
	return "/" + AuthServiceName + "/", mux
}

// IssueToken signs a token whose bearer acts as req.Caller.
func (s *AuthService) IssueToken(_ context.Context, req *IssueTokenRequest) (*IssueTokenResponse, error) {
	if req.Caller.IsZero() {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing caller address"))
	}

	token, err := s.jwtManager.Generate(req.Caller, req.Label)
	if err != nil {
		s.logger.Error("Failed to generate token", "caller", req.Caller, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	claims, err := s.jwtManager.Validate(token)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Token issued", "caller", req.Caller, "label", req.Label)
	return &IssueTokenResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}
