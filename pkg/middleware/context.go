// Package middleware holds the echo middleware of the HTTP surface.
package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	requestIDKey = contextKey("X-Request-Id")
	methodKey    = contextKey("X-Method")
	routeKey     = contextKey("X-Route")
	remoteIPKey  = contextKey("X-Remote-Ip")
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func GetMethod(ctx context.Context) string {
	value, _ := ctx.Value(methodKey).(string)
	return value
}

func GetRoute(ctx context.Context) string {
	value, _ := ctx.Value(routeKey).(string)
	return value
}

func GetRemoteIP(ctx context.Context) string {
	value, _ := ctx.Value(remoteIPKey).(string)
	return value
}

// Context stores the request id and request details on the request context and echoes the
// request id back in the response.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := req.Context()
			ctx = SetRequestID(ctx, requestID)
			ctx = context.WithValue(ctx, methodKey, req.Method)
			ctx = context.WithValue(ctx, routeKey, req.URL.Path)
			ctx = context.WithValue(ctx, remoteIPKey, c.RealIP())

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
