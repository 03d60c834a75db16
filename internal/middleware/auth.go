package middleware

import (
	"net/http"

	"github.com/liftlab/liftlab/internal/auth"
	"github.com/liftlab/liftlab/internal/telemetry/tracing"
	"github.com/liftlab/liftlab/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

type AuthMiddlewareHandler struct {
	loginChecker *auth.LoginChecker
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(loginChecker *auth.LoginChecker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		loginChecker: loginChecker,
		allowedPaths: map[string]bool{
			"/":         true,
			"/version":  true,
			"/a/login":  true,
			"/a/logout": true,
		},
	}
}

// AuthCheck resolves the session token into a Caller and injects it into
// the request context. Role checks happen once here at the boundary,
// services receive the resolved Caller.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			authToken := r.Header.Get("X-LIFTLAB-TOKEN")
			if authToken == "" {
				reqIp, _ := pkg.ReadUserIP(r)
				log.Tracef("[missing token] [auth middleware] unauthorized request from %s => %s", reqIp, r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			caller, err := h.loginChecker.GetCaller(ctx, authToken)
			if err != nil {
				reqIp, _ := pkg.ReadUserIP(r)
				log.Tracef("[invalid token] [auth middleware] unauthorized request from %s => %s: %s", reqIp, r.URL.Path, err)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "not-logged")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.SetCaller(r.Context(), caller)))
		})
	}
}
