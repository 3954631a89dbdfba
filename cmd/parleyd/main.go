// parleyd is the relay proxy: it sits between parley clients and the model
// provider, owning the upstream credential, request validation, error
// classification, and usage accounting.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parley/provider"
	"parley/server"
)

func main() {
	var (
		addr         = flag.String("addr", ":8787", "listen address")
		upstreamType = flag.String("upstream", "ollama", "upstream provider: ollama, openai, anthropic")
		upstreamURL  = flag.String("upstream-url", "", "upstream base URL (provider default when empty)")
		modelName    = flag.String("model", "", "upstream model name (provider default when empty)")
		analyticsDB  = flag.String("analytics-db", "parleyd.db", "path to the usage database, empty to disable")
		issueToken   = flag.String("issue-token", "", "mint a client token for the given principal ID and exit")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	secret := os.Getenv("PARLEYD_SECRET")
	if secret == "" {
		logger.Error("PARLEYD_SECRET is required")
		os.Exit(1)
	}
	auth := server.NewAuthenticator(secret)

	if *issueToken != "" {
		token, err := auth.Issue(*issueToken, 90*24*time.Hour)
		if err != nil {
			logger.Error("failed to issue token", "err", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	upstream, err := provider.NewProvider(provider.Config{
		Type:    provider.ProviderType(*upstreamType),
		BaseURL: *upstreamURL,
		Model:   *modelName,
		APIKey:  os.Getenv("PARLEYD_UPSTREAM_KEY"),
	})
	if err != nil {
		logger.Error("failed to create upstream provider", "err", err)
		os.Exit(1)
	}

	opts := server.Options{
		Logger:   logger,
		Auth:     auth,
		Upstream: upstream,
	}
	if *analyticsDB != "" {
		analytics, err := server.OpenAnalytics(*analyticsDB)
		if err != nil {
			logger.Error("failed to open analytics database", "err", err)
			os.Exit(1)
		}
		defer analytics.Close()
		opts.Analytics = analytics
	}

	srv := server.New(opts)

	go func() {
		if err := srv.Start(*addr); err != nil {
			logger.Error("server stopped", "err", err)
		}
	}()
	logger.Info("parleyd listening", "addr", *addr, "upstream", *upstreamType)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
