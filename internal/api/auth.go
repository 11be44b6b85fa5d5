package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"hotelbook/internal/config"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	userHeaderDefault     = "x-user-id"
	clientKeyUnknown      = "unknown"

	permReadAvailability    = "read:availability"
	permReadRecommendations = "read:recommendations"
	permReadResources       = "read:resources"
	permReadInteractions    = "read:interactions"
	permWriteInteractions   = "write:interactions"
	permWriteReservations   = "write:reservations"
	permAdmin               = "admin"
)

var (
	errMissingKeys      = errors.New("missing api key headers")
	errInvalidKey       = errors.New("invalid api key")
	errInvalidExtra     = errors.New("invalid extra header")
	errPermissionDenied = errors.New("permission denied")
	errRateLimited      = errors.New("rate limit exceeded")
)

// keyring validates machine clients. It is shared by both transports.
type keyring struct {
	cfg     config.APIConfig
	clients map[string]config.APIClientKey
	limiter *rateLimiter
}

func newKeyring(cfg config.APIConfig) *keyring {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &keyring{cfg: cfg, clients: m, limiter: newRateLimiter(cfg.RateLimit)}
}

func (k *keyring) apiKeyHeader() string {
	if h := strings.ToLower(strings.TrimSpace(k.cfg.Auth.HeaderAPIKey)); h != "" {
		return h
	}
	return apiKeyHeaderDefault
}

func (k *keyring) extraHeader() string {
	if h := strings.ToLower(strings.TrimSpace(k.cfg.Auth.HeaderExtra)); h != "" {
		return h
	}
	return apiExtraHeaderDefault
}

// check authenticates apiKey/extra and verifies the permission, if any.
func (k *keyring) check(apiKey, extra, required string) error {
	if apiKey == "" || extra == "" {
		return errMissingKeys
	}
	client, ok := k.clients[apiKey]
	if !ok {
		return errInvalidKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return errInvalidExtra
	}
	if required == "" || len(client.Permissions) == 0 {
		// empty list = allow-all
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	keys *keyring
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{keys: newKeyring(cfg)}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := a.keys.cfg
		if !cfg.Enabled || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		if cfg.Auth.Enabled {
			apiKey := strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader()))
			extra := strings.TrimSpace(r.Header.Get(a.keys.extraHeader()))
			if err := a.keys.check(apiKey, extra, requiredPermissionHTTP(r)); err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if !a.keys.limiter.Allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requiredPermissionHTTP(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/admin/"):
		return permAdmin
	case strings.HasPrefix(path, "/api/v1/availability"), path == "/api/v1/price":
		return permReadAvailability
	case strings.HasPrefix(path, "/api/v1/recommendations"):
		return permReadRecommendations
	case strings.HasPrefix(path, "/api/v1/interactions"):
		return permWriteInteractions
	case strings.HasPrefix(path, "/api/v1/users/"):
		return permReadInteractions
	case strings.HasPrefix(path, "/api/v1/reservations"):
		if r.Method == http.MethodGet {
			return permReadResources
		}
		return permWriteReservations
	case strings.HasPrefix(path, "/api/v1/resources"):
		if strings.HasSuffix(path, "/price") {
			return permReadAvailability
		}
		return permReadResources
	}
	return ""
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// AuthInterceptor is the gRPC counterpart of HTTPAuth.
type AuthInterceptor struct {
	keys *keyring
}

func NewAuthInterceptor(cfg config.APIConfig) *AuthInterceptor {
	return &AuthInterceptor{keys: newKeyring(cfg)}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !a.keys.cfg.Enabled || strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}

		if a.keys.cfg.Auth.Enabled {
			if err := a.checkAuth(ctx, info.FullMethod); err != nil {
				return nil, err
			}
		}
		if !a.keys.limiter.Allow(a.clientKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, errRateLimited.Error())
		}

		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) checkAuth(ctx context.Context, fullMethod string) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}

	apiKey := first(md.Get(a.keys.apiKeyHeader()))
	extra := first(md.Get(a.keys.extraHeader()))
	err := a.keys.check(apiKey, extra, requiredPermission(fullMethod))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		return status.Error(codes.Unauthenticated, err.Error())
	}
}

func requiredPermission(fullMethod string) string {
	switch fullMethod {
	case methodCheckAvailability, methodComputePrice:
		return permReadAvailability
	case methodGetRecommendations:
		return permReadRecommendations
	default:
		return ""
	}
}

func (a *AuthInterceptor) clientKey(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if apiKey := first(md.Get(a.keys.apiKeyHeader())); apiKey != "" {
		return apiKey
	}

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
