package middleware

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
)

// RedirectLog logs the client and path of every redirect that was served.
func RedirectLog(logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		next(ctx)

		switch ctx.Status() {
		case http.StatusMovedPermanently, http.StatusFound,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
			u := ctx.URL()

			logger.Info("redirect served",
				zap.String("client_ip", clientIP(ctx)),
				zap.String("path", u.Path),
				zap.Int("status", ctx.Status()),
			)
		}
	}
}
