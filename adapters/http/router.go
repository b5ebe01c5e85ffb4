package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/khoahotran/user-service/pkg/logger"
)

type RouterDeps struct {
	UserHandler    *UserHandler
	AvatarHandler  *AvatarHandler
	AuthMiddleware gin.HandlerFunc
	Logger         logger.Logger
	ServiceName    string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(deps.ServiceName),
		RequestLogger(deps.Logger),
		ErrorMiddleware(deps.Logger),
	)

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })

	users := router.Group("/users")
	{
		users.POST("", deps.UserHandler.Register)
		users.POST("/login", deps.UserHandler.Login)

		private := users.Group("")
		private.Use(deps.AuthMiddleware)
		{
			private.POST("/logout", deps.UserHandler.Logout)
			private.POST("/logoutAll", deps.UserHandler.LogoutAll)
			private.GET("/me", deps.UserHandler.GetMe)
			private.PATCH("/me", deps.UserHandler.UpdateMe)
			private.DELETE("/me", deps.UserHandler.DeleteMe)
			private.POST("/me/avatar", deps.AvatarHandler.UploadAvatar)
			private.DELETE("/me/avatar", deps.AvatarHandler.DeleteAvatar)
		}
	}

	router.GET("/user/:id/avatar", deps.AvatarHandler.GetAvatar)

	return router
}
