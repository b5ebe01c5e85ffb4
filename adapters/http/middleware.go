package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/user-service/internal/application/usecase/account"
	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/logger"
)

const (
	GinContextKeyUser  = "user"
	GinContextKeyToken = "token"
)

// AuthMiddleware resolves the bearer token to a user and stores both in the
// gin context. Rejected requests never reach the handler.
func AuthMiddleware(authUC *account.AuthenticateUseCase, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Error(apperror.NewUnauthorized("Authorization header is required", nil))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			c.Error(apperror.NewUnauthorized("Invalid token format", nil))
			c.Abort()
			return
		}

		u, err := authUC.Execute(c.Request.Context(), tokenString)
		if err != nil {
			log.Debug("Rejected bearer token", zap.Error(err))
			c.Error(err)
			c.Abort()
			return
		}

		c.Set(GinContextKeyUser, u)
		c.Set(GinContextKeyToken, tokenString)
		c.Next()
	}
}

func GetUserFromGinContext(c *gin.Context) (*user.User, bool) {
	v, ok := c.Get(GinContextKeyUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok && u != nil
}

func GetTokenFromGinContext(c *gin.Context) (string, bool) {
	token := c.GetString(GinContextKeyToken)
	return token, token != ""
}

// ErrorMiddleware renders the last error attached with c.Error as the
// standard error envelope.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := apperror.From(c.Errors.Last().Err)
		status := apperror.ToHTTPStatus(appErr)
		if status >= 500 {
			log.Error("Request failed", appErr, zap.String("path", c.FullPath()))
		}
		c.JSON(status, appErr.ToJSON())
	}
}

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
