package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"confhub/internal/api"
	"confhub/internal/auth"
	"confhub/internal/config"
	"confhub/internal/database"
	"confhub/internal/directory"
	"confhub/internal/logging"
	"confhub/internal/mail"
	"confhub/internal/media"
	"confhub/internal/notify"
	"confhub/internal/sessions"
	"confhub/internal/store"
	"confhub/internal/store/memstore"
	"confhub/internal/store/mongostore"
	"confhub/internal/verification"

	"github.com/gorilla/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)

	// Create a context for initialization.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stores, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Initialization error: %v", err)
	}
	files, err := openMedia(ctx, cfg)
	if err != nil {
		log.Fatalf("Initialization error: %v", err)
	}

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	tokens := auth.NewJWTIssuer(cfg.JWTSecret)
	renderer := mail.NewRenderer()
	dispatcher := mail.NewDispatcher(mailSender(cfg, logger), cfg.MailTimeout, logger)
	recorder := auth.NewAsyncRecorder(stores.Activities(), logger, cfg.AuditBufferSize)
	hub := notify.NewHub()

	authService := auth.NewService(stores.Users(), stores.Speakers(), hasher, tokens, auth.Settings{
		AdminTTL:        cfg.AdminTokenTTL,
		UserTTL:         cfg.UserTokenTTL,
		SpeakerTTL:      cfg.SpeakerTokenTTL,
		RegistrationTTL: cfg.RegistrationTokenTTL,
		TOTPIssuer:      cfg.TOTPIssuer,
		DefaultPassword: cfg.DefaultPassword,
	}, logger,
		auth.WithAuditSink(recorder),
		auth.WithLockAlerter(auth.NewMailAlerter(dispatcher, renderer, logger)),
	)
	workflow := verification.NewWorkflow(stores.Users(), hasher, renderer, dispatcher, hub, verification.Settings{
		Subject:       cfg.ApprovalSubject,
		InvoicePrefix: cfg.InvoicePrefix,
		AmountDue:     cfg.AmountDue,
		InvoiceDueIn:  cfg.InvoiceDueIn,
	}, logger)

	server := api.NewServer(api.Deps{
		Auth:         authService,
		Tokens:       tokens,
		Verification: workflow,
		Sessions:     sessions.NewManager(stores.Sessions(), stores.Users(), stores.Speakers(), hub, logger),
		Users:        directory.NewUsers(stores.Users(), files, logger),
		Speakers:     directory.NewSpeakers(stores.Speakers(), hasher, files, cfg.SpeakerPassword, logger),
		Activities:   stores.Activities(),
		Hub:          hub,
		Log:          logger,
	})

	router := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSAllowOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID"}),
	)(server.Routes())
	router = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(router)

	// Wrap the router with logging middleware.
	loggedRouter := handlers.CustomLoggingHandler(os.Stdout, router, api.AccessLogFormatter)

	// WriteTimeout stays zero so notification streams are not cut off; slow
	// handlers are bounded by ReadTimeout and the store deadlines.
	srv := &http.Server{
		Handler:     loggedRouter,
		Addr:        cfg.Addr(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start the server in a goroutine.
	go func() {
		logger.Info(context.Background(), "server listening", "addr", cfg.Addr(), "store", cfg.StoreBackend, "media", cfg.MediaBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signals for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info(context.Background(), "shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	hub.Close()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error(ctxShutdown, "server forced to shutdown", "error", err)
	}
	if err := dispatcher.Wait(ctxShutdown); err != nil {
		logger.Warn(ctxShutdown, "pending emails abandoned", "error", err)
	}
	if err := recorder.Close(ctxShutdown); err != nil {
		logger.Warn(ctxShutdown, "login activities abandoned", "error", err)
	}
	if err := stores.Close(ctxShutdown); err != nil {
		logger.Error(ctxShutdown, "error disconnecting from store", "error", err)
	}
	logger.Info(context.Background(), "server exited gracefully")
}

func openStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (store.Manager, error) {
	if cfg.StoreBackend == config.StoreMemory {
		logger.Warn(ctx, "using in-memory store, data is lost on restart")
		return memstore.New(), nil
	}
	client, err := database.Connect(ctx, cfg.MongoURI, logger)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDB)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return mongostore.New(client, db), nil
}

func openMedia(ctx context.Context, cfg *config.Config) (media.Store, error) {
	if cfg.MediaBackend == config.MediaS3 {
		return media.NewS3Store(ctx, media.S3Settings{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	}
	return media.NewLocalStore(cfg.UploadDir), nil
}

// mailSender falls back to logging when no relay is configured.
func mailSender(cfg *config.Config, logger logging.Logger) mail.Sender {
	if cfg.SMTPServer == "" {
		return mail.SenderFunc(func(ctx context.Context, msg mail.Message) error {
			logger.Warn(ctx, "SMTP_SERVER not set, email not sent", "to", msg.To, "subject", msg.Subject)
			return nil
		})
	}
	return &mail.SMTPSender{
		Server:   cfg.SMTPServer,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
}
