package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/antoniostano/dorothy/internal/chat"
	"github.com/antoniostano/dorothy/internal/command"
	"github.com/antoniostano/dorothy/internal/completion"
	"github.com/antoniostano/dorothy/internal/config"
	"github.com/antoniostano/dorothy/internal/httpapi"
	"github.com/antoniostano/dorothy/internal/observability"
	"github.com/antoniostano/dorothy/internal/policy"
	"github.com/antoniostano/dorothy/internal/responder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	latency := observability.NewLatencyWindow(256)

	var client completion.Client
	switch cfg.CompletionProvider {
	case "http":
		client = completion.NewHTTPClient(cfg.CompletionAPIURL, cfg.CompletionAPIKey, cfg.CompletionModel, cfg.CompletionTimeout)
		log.Printf("completion provider: http (%s)", cfg.CompletionModel)
	case "mock":
		client = completion.NewMockClient()
		log.Printf("completion provider: mock")
	case "auto":
		if cfg.CompletionAPIKey != "" {
			client = completion.NewHTTPClient(cfg.CompletionAPIURL, cfg.CompletionAPIKey, cfg.CompletionModel, cfg.CompletionTimeout)
			log.Printf("completion provider: http (%s)", cfg.CompletionModel)
		} else {
			client = completion.NewMockClient()
			log.Printf("completion provider: mock (COMPLETION_API_KEY is not set)")
		}
	}

	registry := chat.NewRegistry(cfg.DefaultPreamble)
	registry.SetPurgeHook(func() { metrics.ContextPurges.Inc() })

	admins := policy.NewAllowList(cfg.AdminIDs)
	if admins.Len() == 0 {
		log.Printf("ADMIN_IDS is empty; privileged commands are disabled")
	}
	interp := command.NewInterpreter(admins, cfg.CommandPrefix, cfg.AgentName)

	resp := responder.New(
		registry,
		client,
		interp,
		metrics,
		latency,
		cfg.AgentName,
		cfg.CommandPrefix,
		cfg.CompletionMaxTokens,
		cfg.CompletionTimeout,
	)

	api := httpapi.New(cfg, registry, resp, latency)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("%s listening on %s", cfg.AgentName, cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
