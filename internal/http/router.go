package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/triage_inbox/backend/internal/config"
	"github.com/triage_inbox/backend/internal/conversation"
	"github.com/triage_inbox/backend/internal/http/handlers"
	"github.com/triage_inbox/backend/internal/http/middleware"

	_ "github.com/triage_inbox/backend/docs"
)

func Router(cfg config.Config, store *conversation.Store, db handlers.Pinger, dir config.Directory, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:          store,
		DB:             db,
		Validator:      validator.New(),
		Logger:         logger,
		Directory:      dir,
		DefaultAgentID: cfg.DefaultAgentID,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/inbox", h.Inbox)
		api.GET("/conversations/:userId", h.Conversation)
		api.POST("/conversations/:userId/messages", h.AppendMessage)
		api.POST("/conversations/:userId/resolve", h.ResolveConversation)
		api.POST("/messages/:id/read", h.MarkAsRead)
		api.POST("/messages/:id/resolve", h.ResolveMessage)
		api.GET("/agents", h.AgentsList)
		api.GET("/canned-responses", h.CannedResponsesList)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/import", h.Import)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
