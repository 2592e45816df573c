package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/nkoval/folio/internal/api"
	"github.com/nkoval/folio/internal/chat"
	"github.com/nkoval/folio/internal/config"
	"github.com/nkoval/folio/internal/gemini"
	"github.com/nkoval/folio/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the folio server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show folio configuration and server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

var setPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Set the admin panel password",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPassword()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "folio version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if cfg.Gemini.APIKey == "" {
		slog.Warn("Gemini API key not configured; chat endpoint will be unavailable until FOLIO_GEMINI_API_KEY is set")
	}
	if cfg.Auth.PasswordHash == "" {
		slog.Warn("admin password not set; run `folio set-password` to enable the admin panel")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the chat pipeline.
	generator := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)
	assembler := chat.NewAssembler(store, cfg.Chat.MaxContextChars)
	chatSvc := chat.NewService(assembler, generator, chat.Options{
		MaxHistoryTurns:  cfg.Chat.MaxHistoryTurns,
		RequireGrounding: cfg.Chat.RequireGrounding,
	})

	// Public routes and the session-gated admin routes share one router.
	handler := api.NewHandler(api.PublicDeps{
		Store:     store,
		Chat:      chatSvc,
		ChatRPS:   cfg.Chat.RateRPS,
		ChatBurst: cfg.Chat.RateBurst,
	}, api.AdminDeps{
		Store:        store,
		PasswordHash: cfg.Auth.PasswordHash,
		SessionTTL:   cfg.SessionDuration(),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "folio listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		api.RunSessionJanitor(gctx, store, time.Hour)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if cfg.Gemini.APIKey == "" {
		printStatus("Chat", "disabled (no API key)")
	} else {
		printStatus("Chat", "enabled (model %s)", cfg.Gemini.Model)
	}
	if cfg.Auth.PasswordHash == "" {
		printStatus("Admin", "disabled (no password set)")
	} else {
		printStatus("Admin", "enabled")
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func setPassword() error {
	fmt.Fprint(os.Stderr, "New admin password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if len(raw) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword(raw, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := config.SavePasswordHash(string(hash)); err != nil {
		return fmt.Errorf("saving password hash: %w", err)
	}

	printSuccess("Admin password updated")
	return nil
}
