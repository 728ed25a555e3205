package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	myPostgresRepo "github.com/casaviva/auth-service/internal/adapters/db/postgres"
	myRedisRepo "github.com/casaviva/auth-service/internal/adapters/db/redis"
	myHTTP "github.com/casaviva/auth-service/internal/adapters/transport/http"
	"github.com/casaviva/auth-service/internal/adapters/transport/http/dto"
	httpmw "github.com/casaviva/auth-service/internal/adapters/transport/http/middleware"
	appjwt "github.com/casaviva/auth-service/internal/app/auth/jwt"
	appsvc "github.com/casaviva/auth-service/internal/app/auth/service"
	"github.com/casaviva/auth-service/internal/infra/config"
	lg "github.com/casaviva/auth-service/internal/infra/log"
	"github.com/casaviva/auth-service/internal/infra/migrate"
	"github.com/casaviva/auth-service/internal/infra/server"
	"golang.org/x/sync/errgroup"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	zapLog := lg.Must(os.Getenv("LOG_LEVEL"))
	defer zapLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("failed to load config", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		zapLog.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zapLog.Fatal("db handle", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := migrate.Up(sqlDB); err != nil {
		zapLog.Fatal("run migrations", zap.Error(err))
	}

	redisCli := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisCli.Close()

	validate := validator.New()
	if err := dto.RegisterValidations(validate); err != nil {
		zapLog.Fatal("register validations", zap.Error(err))
	}

	userRepo := myPostgresRepo.NewPostgresUserRepo(db)
	tokenRepo := myPostgresRepo.NewPostgresTokenRepo(db)
	verifyRepo := myRedisRepo.NewRedisVerifyRepo(redisCli)

	jwtUtil, err := appjwt.NewJWTUtil(cfg)
	if err != nil {
		zapLog.Fatal("failed to init JWT util", zap.Error(err))
	}

	svc := appsvc.New(userRepo, tokenRepo, verifyRepo, jwtUtil, cfg, validate, zapLog)
	gate := httpmw.NewGate(userRepo, jwtUtil, zapLog)
	handler := myHTTP.NewAuthHandler(svc, cfg, validate, zapLog)

	router := gin.New()
	router.Use(httpmw.Recovery(zapLog))
	router.Use(httpmw.RequestLogger(zapLog))
	router.Use(httpmw.RateLimitPerIP(50, 100, 10_000, time.Hour))

	corsConfig := cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			"Authorization",
			"X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	handler.RegisterRoutes(router, gate)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "time": time.Now().Unix()})
	})

	rootCtx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		return server.StartHTTPServer(ctx, cfg, router, zapLog)
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		zapLog.Info("shutdown signal received")
	case <-ctx.Done():
	}
	cancel()

	if err := g.Wait(); err != nil {
		zapLog.Fatal("server terminated", zap.Error(err))
	}
}
