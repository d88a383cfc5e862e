package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ragchat/internal/config"
	"ragchat/internal/handler"
	"ragchat/internal/service/auth"
	"ragchat/internal/service/rag"
	"ragchat/internal/service/session"
	"ragchat/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("failed to open document store: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Printf("warning: failed to close store: %v", err)
		}
	}()

	sessionSvc := session.NewService(st)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authSvc := auth.NewService(st, sessionSvc, tokens, cfg.Auth.BcryptCost)

	// Initialize the retrieval pipeline when model credentials are present.
	var ragSvc *rag.Service
	if cfg.AI.Enabled() {
		ragSvc, err = rag.NewService(ctx, nil, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize retrieval pipeline: %v", err)
			log.Println("continuing without answer generation")
		} else {
			log.Println("retrieval pipeline initialized successfully")
		}
	} else {
		log.Println("model credentials not configured, skipping retrieval pipeline")
	}

	router := handler.NewRouter(cfg, sessionSvc, authSvc, ragSvc)

	startServer(ctx, cfg.Server, router)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	if cfg.URI == "" {
		log.Println("MONGODB_URI not set, using in-memory store (data is not persisted)")
		return store.NewMemoryStore(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.NewMongoStore(connectCtx, cfg.URI, cfg.Database)
	if err != nil {
		return nil, err
	}
	log.Printf("connected to MongoDB database %q", cfg.Database)
	return st, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("RAG chatbot backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
