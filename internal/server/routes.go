package server

import (
	"github.com/gin-contrib/cors"
	"go.uber.org/fx"

	"github.com/Shaswata28/studymate/internal/server/api"
	"github.com/Shaswata28/studymate/internal/server/middleware"
)

// Handlers groups the HTTP handler sets the routes below dispatch to
// (§6.1's chat/materials/system surface).
type Handlers struct {
	fx.In

	Chat      *api.ChatHandlers
	Materials *api.MaterialHandlers
	System    *api.SystemHandlers
}

// SetupRoutes registers StudyMate's REST surface: chat, materials
// upload/list/search, and a health endpoint, with a principal trusted from
// the upstream auth gateway ahead of every course-scoped route (§6.1).
func SetupRoutes(server *Server, handlers Handlers) {
	server.Use(middleware.AccessLog())

	if server.Config.CORS.Enabled {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = server.Config.CORS.AllowedOrigins
		corsConfig.AllowMethods = server.Config.CORS.AllowedMethods
		corsConfig.AllowHeaders = server.Config.CORS.AllowedHeaders
		corsConfig.ExposeHeaders = server.Config.CORS.ExposedHeaders
		corsConfig.AllowCredentials = server.Config.CORS.AllowCredentials
		corsConfig.MaxAge = server.Config.CORS.MaxAge

		corsHandler := cors.New(corsConfig)
		server.Use(corsHandler)
		server.OPTIONS("*any", corsHandler)
	}

	publicGroup := server.Group("", middleware.WithTimeout(server.Config.RequestTimeout))
	{
		publicGroup.GET("/health", handlers.System.Health)
	}

	// Global chat (no course scope, §6.1): course_id is read from the body
	// when present there, and retrieval is skipped when it is absent.
	globalChatGroup := server.Group("/chat",
		middleware.Principal(),
		middleware.WithTimeout(server.Config.LLMRequestTimeout),
	)
	{
		globalChatGroup.POST("", handlers.Chat.PostChat)
	}

	courseGroup := server.Group("/courses/:course_id",
		middleware.Principal(),
		middleware.WithTimeout(server.Config.LLMRequestTimeout),
	)
	{
		courseGroup.POST("/chat", handlers.Chat.PostChat)
		courseGroup.GET("/materials", handlers.Materials.ListMaterials)
		courseGroup.POST("/materials", handlers.Materials.UploadMaterial)
		courseGroup.POST("/materials/search", handlers.Materials.SearchMaterials)
	}
}
