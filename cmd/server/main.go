package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/trekhub/tour-api/internal/config"
	"github.com/trekhub/tour-api/internal/database"
	"github.com/trekhub/tour-api/internal/handler"
	"github.com/trekhub/tour-api/internal/httpx"
	"github.com/trekhub/tour-api/internal/queue"
	"github.com/trekhub/tour-api/internal/ratelimit"
	"github.com/trekhub/tour-api/internal/repository"
	"github.com/trekhub/tour-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	userRepo := repository.NewUserRepo(db)
	tourRepo := repository.NewTourRepo(db)
	reviewRepo := repository.NewReviewRepo(db)

	// Shared counters when Redis is reachable, per-process otherwise.
	var loginLimiter ratelimit.Limiter
	if rdb := config.NewRedisClient(); rdb != nil {
		loginLimiter = ratelimit.NewRedisLimiter(rdb, "login", cfg.LoginMaxAttempts, cfg.LoginWindow)
	} else {
		log.Println("redis unavailable, using in-memory login limiter")
		loginLimiter = ratelimit.NewMemoryLimiter(cfg.LoginMaxAttempts, cfg.LoginWindow)
	}

	mailer := queue.NewAMQPMailer()
	go func() {
		if err := queue.StartMailConsumer(); err != nil {
			log.Printf("mail consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpx.ErrorHandler
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.Register(e, router.Deps{
		Cfg:          cfg,
		Users:        userRepo,
		Auth:         handler.NewAuthHandler(cfg, userRepo, mailer),
		UserHandler:  handler.NewUserHandler(userRepo),
		Tours:        handler.NewTourHandler(tourRepo),
		Reviews:      handler.NewReviewHandler(reviewRepo, tourRepo),
		LoginLimiter: loginLimiter,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
