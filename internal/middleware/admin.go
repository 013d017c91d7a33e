package middleware

import (
	"net/http"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const AdminPasswordHeader = "X-Admin-Password"

// AdminAuth lets a request through only when the X-Admin-Password header
// matches the bcrypt hash. With an empty hash every request is refused.
func AdminAuth(adminPasswordHash string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.admin_auth")
			defer span.End()

			password := r.Header.Get(AdminPasswordHeader)
			if password == "" || adminPasswordHash == "" {
				log.Tracef("[missing password] [admin auth] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-password")
				return
			}

			if !pkg.CheckPasswordHash(password, adminPasswordHash) {
				reqIp, _ := pkg.ReadUserIP(r)
				log.Warnf("[wrong password] [admin auth] unauthorized => %s from %s", r.URL.Path, reqIp)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "wrong-password")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r)
		})
	}
}
