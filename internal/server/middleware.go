package server

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/yousuf/jsstack/internal/logs"
	"github.com/yousuf/jsstack/internal/session"
)

// sessionContextKey is the context key for storing session context
type contextKey string

const sessionContextKey contextKey = "session"

// getSessionFromContext retrieves the session context from the request context.
// The session is stored as a value so its lifecycle stays separate from the request's.
func getSessionFromContext(ctx context.Context) (*session.Context, error) {
	sessionCtx, ok := ctx.Value(sessionContextKey).(*session.Context)
	if !ok || sessionCtx == nil {
		return nil, errors.New("session context not found in request context")
	}
	return sessionCtx, nil
}

// createSessionInjectionMiddleware creates middleware that automatically manages session lifecycle
func createSessionInjectionMiddleware(sessionMgr *session.Manager) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(
			ctx context.Context,
			method string,
			req mcp.Request,
		) (mcp.Result, error) {
			sessionID := req.GetSession().ID()

			sessionCtx, err := sessionMgr.GetOrCreateSession(ctx, sessionID)
			if err != nil {
				return nil, errors.Wrap(err, "failed to get/create session")
			}

			sessionCtx.UpdateLastAccessed()

			// Pass request context (can be cancelled without affecting session)
			ctx = context.WithValue(ctx, sessionContextKey, sessionCtx)
			return next(ctx, method, req)
		}
	}
}

// createLoggingMiddleware creates middleware that logs all MCP method calls
func createLoggingMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(
			ctx context.Context,
			method string,
			req mcp.Request,
		) (mcp.Result, error) {
			start := time.Now()
			log := logger().With(
				zap.String("session", req.GetSession().ID()),
				zap.String("method", method),
			)

			log.Debug("request")

			result, err := next(ctx, method, req)

			duration := time.Since(start)
			if err != nil {
				log.Warn("request failed", zap.Duration("duration", duration), zap.Error(err))
			} else {
				log.Debug("request done", zap.Duration("duration", duration))
			}

			return result, err
		}
	}
}

func logger() *zap.Logger {
	return zap.L().Named(logs.Server)
}
