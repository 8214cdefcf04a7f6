package main

import (
	"go.uber.org/zap"

	"whatsapp-crm/internal/api"
	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/logger"
	"whatsapp-crm/internal/syncer"
	"whatsapp-crm/internal/webhook"
	"whatsapp-crm/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg)
	defer zap.L().Sync()

	db, err := database.Open(cfg)
	if err != nil {
		zap.L().Fatal("failed to open database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zap.L().Fatal("failed to migrate database", zap.Error(err))
	}

	hub := ws.NewHub()
	go hub.Run()

	templateSyncer := syncer.New(cfg, db)
	if err := templateSyncer.Start(); err != nil {
		zap.L().Fatal("failed to start template syncer", zap.Error(err))
	}
	defer templateSyncer.Stop()

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	webhookHandler := webhook.NewHandler(cfg, db, hub)
	messageHandler := api.NewMessageHandler(cfg, db, hub)
	customerHandler := api.NewCustomerHandler(db)
	templateHandler := api.NewTemplateHandler(db, templateSyncer)
	creditHandler := api.NewCreditHandler(db)
	agentHandler := api.NewAgentHandler(db)

	// Webhook Routes
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleMessage)

	// Live inbox socket
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/admin/agents", agentHandler.Provision)

		agentGroup := apiGroup.Group("/agents/:agentId")
		{
			agentGroup.GET("", agentHandler.GetAgent)

			agentGroup.POST("/messages/send", messageHandler.SendMessage)

			agentGroup.GET("/conversations", customerHandler.ListCustomers)
			agentGroup.GET("/conversations/:customerId/messages", messageHandler.GetConversation)
			agentGroup.POST("/conversations/:customerId/read", messageHandler.MarkRead)

			agentGroup.POST("/customers", customerHandler.CreateCustomer)
			agentGroup.PUT("/customers/:customerId/lead-stage", customerHandler.UpdateLeadStage)

			agentGroup.GET("/templates", templateHandler.ListTemplates)
			agentGroup.POST("/templates/sync", templateHandler.SyncTemplates)

			agentGroup.GET("/credits", creditHandler.Balance)
			agentGroup.POST("/credits/topup", creditHandler.Topup)
		}
	}

	zap.L().Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		zap.L().Fatal("failed to run server", zap.Error(err))
	}
}
