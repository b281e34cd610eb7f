package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/medibid/auction-api/internal/auth"
	"github.com/medibid/auction-api/internal/awards"
	"github.com/medibid/auction-api/internal/bidding"
	"github.com/medibid/auction-api/internal/config"
	"github.com/medibid/auction-api/internal/database"
	"github.com/medibid/auction-api/internal/handshake"
	"github.com/medibid/auction-api/internal/listings"
	"github.com/medibid/auction-api/internal/notify"
	"github.com/medibid/auction-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// main initializes and runs the auction API server with graceful
// shutdown support. It wires the bid ledger, award selector, handshake
// and listing services over one database, plus the expiry processor.
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Configure pretty logging for development
	if cfg.Env != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Event publishing is best effort; without a NATS server the core
	// runs with the no-op notifier.
	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.NATSURL != "" {
		natsNotifier, err := notify.NewNATSNotifier(cfg.NATSURL)
		if err != nil {
			zlog.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer natsNotifier.Close()
		notifier = natsNotifier
	}

	var bidCache *bidding.Cache
	if cfg.RedisAddr != "" {
		bidCache = bidding.NewCache(cfg.RedisAddr)
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	biddingService := bidding.NewService(db, bidCache)
	biddingHandlers := bidding.NewGinHandlers(biddingService)

	listingService := listings.NewService(db, biddingService)
	listingHandlers := listings.NewGinHandlers(listingService)

	awardService := awards.NewService(db, notifier)
	awardHandlers := awards.NewGinHandlers(awardService)

	handshakeService := handshake.NewService(db, notifier)
	handshakeHandlers := handshake.NewGinHandlers(handshakeService)

	// Create and start the expiry processor
	expiryProcessor := listings.NewProcessor(listings.NewDatabase(db), notifier, cfg.ExpirySweepInterval)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go expiryProcessor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg.JWTSecret, authHandlers, listingHandlers, biddingHandlers, awardHandlers, handshakeHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Public listing routes: browse, view, ledger, quote
// - Authenticated routes: publish, bid, award, handshake
// - Internal routes: administrative deposit confirmation
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	listingHandlers *listings.GinHandlers,
	biddingHandlers *bidding.GinHandlers,
	awardHandlers *awards.GinHandlers,
	handshakeHandlers *handshake.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Public read surface
		public := v1.Group("/listings")
		{
			public.GET("", listingHandlers.ListOpenHandler())
			public.GET("/:listing_id", listingHandlers.GetHandler())
			public.GET("/:listing_id/quote", listingHandlers.QuoteHandler())
			public.GET("/:listing_id/bids", biddingHandlers.ListBidsHandler())
		}

		// Authenticated routes
		private := v1.Group("/listings")
		private.Use(middleware.JWTAuth(jwtSecret))
		{
			private.POST("", listingHandlers.PublishHandler())
			private.POST("/:listing_id/bids", biddingHandlers.PlaceBidHandler())
			private.GET("/:listing_id/bids/mine", biddingHandlers.MyBidsHandler())
			private.POST("/:listing_id/award", awardHandlers.AwardHandler())
			private.POST("/:listing_id/visit", handshakeHandlers.ProposeVisitHandler())
			private.POST("/:listing_id/seller/advance", handshakeHandlers.SellerAdvanceHandler())
			private.POST("/:listing_id/buyer/advance", handshakeHandlers.BuyerAdvanceHandler())
			private.POST("/:listing_id/seller/complete", handshakeHandlers.SellerCompleteHandler())
			private.POST("/:listing_id/buyer/complete", handshakeHandlers.BuyerCompleteHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(jwtSecret))
		{
			internal.POST("/listings/:listing_id/deposit", handshakeHandlers.ConfirmDepositHandler())
		}
	}
}
