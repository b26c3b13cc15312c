package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/dealguard/adapters/wallet"
	"github.com/layer-3/dealguard/ports"
	"github.com/layer-3/dealguard/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps are the services exposed over HTTP
type Deps struct {
	Auth     *service.AuthService
	Reducer  *service.EventReducer
	Wallet   *wallet.Connector
	Balances ports.BalanceSource
	Stream   *Stream
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(deps.Logger))

	handlers := NewHandlers(deps)

	// Login handshake and logout
	auth := router.Group("/auth")
	{
		auth.GET("/login", handlers.Login)
		auth.POST("/callback", handlers.Callback)
		auth.POST("/logout", handlers.Logout)
	}

	// Browser wallet state reported by the UI
	walletGroup := router.Group("/wallet")
	{
		walletGroup.POST("/connect", handlers.ConnectWallet)
		walletGroup.POST("/disconnect", handlers.DisconnectWallet)
	}

	api := router.Group("/api")
	api.GET("/me", handlers.Me)
	api.Use(RequireIdentity(deps.Auth))
	{
		api.GET("/escrows", handlers.Escrows)
		api.GET("/logs", handlers.Logs)
		api.GET("/stats", handlers.Stats)
		api.GET("/balance", handlers.Balance)
		if deps.Stream != nil {
			api.GET("/stream", deps.Stream.Serve)
		}
	}

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
