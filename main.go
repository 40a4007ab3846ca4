package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freelance-hub/backend/config"
	"freelance-hub/backend/database"
	"freelance-hub/backend/handlers"
	"freelance-hub/backend/middleware"
	"freelance-hub/backend/roomprovider"
	"freelance-hub/backend/services"
	"freelance-hub/backend/telemetry"
	"freelance-hub/backend/utils"
	"freelance-hub/backend/websocket"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Invalid LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func main() {
	cfg := config.LoadConfig()
	setupLogging(cfg)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			log.Errorf("Sentry initialization failed: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := telemetry.Init(rootCtx, cfg.OTLPEndpoint, cfg.OTELServiceName, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	db := database.ConnectMongoDB(cfg.MongoDBURI, cfg.DBName)
	defer database.DisconnectMongoDB()

	meetingRepo := database.NewMeetingRepository(db)
	teamRepo := database.NewTeamRepository(db)
	proposalRepo := database.NewProposalRepository(db)

	// 會議出席的即時推送
	hub := websocket.NewHub()
	go hub.Run(rootCtx)

	meetingService := services.NewMeetingService(meetingRepo, hub)
	teamService := services.NewTeamService(teamRepo, proposalRepo)
	applicationService := services.NewApplicationService(teamRepo, proposalRepo)

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set, authenticated routes will reject every request")
	}

	deps := handlers.Deps{
		Meetings:     meetingService,
		Teams:        teamService,
		Applications: applicationService,
		Verifier:     utils.NewJWTVerifier(cfg.JWTSecret),
		Live:         websocket.NewHandler(hub, meetingService, cfg.AllowedOrigins).ServeMeeting,
		Ready:        database.Ping,
	}

	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		limiter := middleware.NewRateLimiter(middleware.NewRedisCounter(rdb), "activity", cfg.ActivityRateLimit, cfg.ActivityRateWindow, cfg.TrustedProxies...)
		deps.ActivityLimiter = limiter.Middleware
		log.Infof("Activity rate limit: %d requests per %s", cfg.ActivityRateLimit, cfg.ActivityRateWindow)
	}

	if cfg.RoomProvider.Enabled() {
		deps.Rooms = roomprovider.New(rootCtx, cfg.RoomProvider)
	}

	router := handlers.NewRouter(deps)

	// 設置 CORS 中介軟體
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	handler := otelhttp.NewHandler(c.Handler(router), "freelance-hub")

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// 如果錯誤不是因為主動關閉伺服器，就記錄錯誤並結束程式
			log.Fatalf("Could not listen on %s: %v", serverAddr, err)
		}
	}()

	//當按下 Ctrl+C，程式會收到 SIGINT
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %s, shutting down server...", sig)

	//最多等30秒關閉，避免資料損壞，請求中斷
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	// 關閉所有 websocket 觀察者
	stop()
	if err := shutdownTracing(ctx); err != nil {
		log.Errorf("Failed to flush traces: %v", err)
	}

	log.Println("Server exited gracefully.")
}
