package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/RozoAI/rozo-intents/logging"
	"github.com/RozoAI/rozo-intents/services"
)

// Server handles HTTP requests
type Server struct {
	intentService *services.IntentService
	fillService   *services.FillService
	adminService  *services.AdminService
	logger        zerolog.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	intentService *services.IntentService,
	fillService *services.FillService,
	adminService *services.AdminService,
	logger zerolog.Logger,
) *Server {
	return &Server{
		intentService: intentService,
		fillService:   fillService,
		adminService:  adminService,
		logger:        logger.With().Str(logging.FieldModule, "http").Logger(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Intent routes
		intents := v1.Group("/intents")
		{
			intents.POST("", s.CreateIntent)
			intents.GET("/:id", s.GetIntent)
			intents.GET("", s.ListIntents)
			intents.POST("/:id/refund", s.RefundIntent)
		}

		// Fill routes
		fills := v1.Group("/fills")
		{
			fills.POST("", s.FillAndNotify)
			fills.POST("/retry", s.RetryNotify)
			fills.GET("/:hash", s.GetFillRecord)
		}

		// Inbound messenger notifications
		v1.POST("/notify", s.Notify)

		// Admin routes
		admin := v1.Group("/admin")
		{
			admin.POST("/initialize", s.Initialize)
			admin.POST("/fee", s.SetProtocolFee)
			admin.GET("/fee", s.GetProtocolFee)
			admin.POST("/fee-recipient", s.SetFeeRecipient)
			admin.POST("/relayers", s.AddRelayer)
			admin.DELETE("/relayers/:address", s.RemoveRelayer)
			admin.POST("/messengers", s.RegisterMessenger)
			admin.POST("/chains", s.SetChainName)
			admin.POST("/trusted-contracts", s.SetTrustedContract)
			admin.POST("/fallback-relayer", s.SetFallbackRelayer)
			admin.POST("/fallback-threshold", s.SetFallbackThreshold)
			admin.POST("/intents/:id/status", s.SetIntentStatus)
			admin.POST("/intents/:id/relayer", s.SetIntentRelayer)
			admin.POST("/intents/:id/force-refund", s.ForceRefund)
			admin.POST("/fees/withdraw", s.WithdrawFees)
			admin.GET("/fees/:token", s.GetAccumulatedFees)
		}
	}

	return router
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return s.Router().Run(addr)
}
