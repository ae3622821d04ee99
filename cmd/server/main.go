package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"docchat/internal/app"
	"docchat/internal/config"
	"docchat/internal/identity"
	"docchat/internal/mailer"
	"docchat/internal/ratelimit"
	"docchat/internal/server"
	"docchat/internal/storage"
	"docchat/internal/tasks"
	"docchat/internal/util"
	"docchat/pkg/aigw"
	"docchat/pkg/convert"
	"docchat/pkg/otp"
	"docchat/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	files, err := storage.NewFileStore(cfg.StorageDir)
	if err != nil {
		log.Fatalf("failed to init file storage: %v", err)
	}

	otpStore, err := otp.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, "")
	if err != nil {
		log.Fatalf("failed to init otp store: %v", err)
	}

	aiClient, err := aigw.New(aigw.Config{
		BaseURL:         cfg.AIServiceURL,
		ExtractTimeout:  time.Duration(cfg.ExtractTimeoutSeconds) * time.Second,
		GenerateTimeout: time.Duration(cfg.GenerateTimeoutSeconds) * time.Second,
		TitleTimeout:    time.Duration(cfg.TitleTimeoutSeconds) * time.Second,
		DeleteTimeout:   time.Duration(cfg.DeleteChunksTimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to init ai client: %v", err)
	}

	verifier, err := identity.NewVerifier(identity.VerifierConfig{
		JWKSURL:  cfg.IdentityJWKSURL,
		Issuer:   cfg.IdentityIssuer,
		Audience: cfg.IdentityAudience,
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	adminClient, err := identity.NewClient(identity.ClientConfig{
		BaseURL:      cfg.IdentityAdminURL,
		ServiceToken: cfg.IdentityServiceToken,
	})
	if err != nil {
		log.Fatalf("failed to init identity admin client: %v", err)
	}

	mail, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		log.Fatalf("failed to init mailer: %v", err)
	}

	queue, err := tasks.NewRedisQueue(tasks.RedisQueueConfig{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		Stream:     cfg.CleanupStream,
		Group:      cfg.CleanupGroup,
		MaxRetries: cfg.CleanupMaxRetries,
	})
	if err != nil {
		log.Fatalf("failed to init cleanup queue: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:     st,
		OTP:       otpStore,
		AI:        aiClient,
		Files:     files,
		Converter: convert.New(cfg.ConvertBinary, time.Duration(cfg.ConvertTimeoutSeconds)*time.Second),
		Tasks:     queue,
		Identity:  adminClient,
		Mailer:    mail,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	queue.Start(context.Background(), cfg.CleanupConcurrency, appCore.CleanupHandler)

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.OTPRateLimit > 0 {
		window := time.Duration(cfg.OTPRateWindowSeconds) * time.Second
		if window <= 0 {
			window = time.Minute
		}
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.OTPRateLimit, window)
		if err != nil {
			log.Fatalf("failed to init otp rate limiter: %v", err)
		}
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		TokenVerifier:  verifier,
		OTPLimiter:     limiter,
		TrustedProxies: trusted,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("docchat server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
