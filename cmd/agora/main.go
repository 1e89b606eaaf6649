package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agora/internal/channel"
	"agora/internal/config"
	"agora/internal/conversations"
	"agora/internal/feed"
	"agora/internal/messages"
	"agora/internal/observability"
	"agora/internal/rest"
	"agora/internal/session"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	shutdownTracing, err := observability.SetupTracing(ctx, "agora-client", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	var sessions *session.Manager
	api := rest.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, func() string {
		return sessions.Token()
	})
	sessions = session.NewManager(api)

	loginCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	current, err := sessions.Login(loginCtx, cfg.Username, cfg.Password)
	cancel()
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	log.Printf("logged in as %s (%s)", current.DisplayName, current.UserID)

	store := conversations.NewStore(api, sessions)
	posts := feed.NewService(api)

	// The socket is optional: without it the client degrades to read-only
	// browsing over REST.
	ch := channel.NewManager(cfg.SocketURL, sessions.Token)
	connectCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	err = ch.Connect(connectCtx)
	cancel()
	if err != nil {
		log.Printf("socket unavailable, messaging disabled: %v", err)
	} else {
		thread := messages.NewThread(ch, sessions)
		defer store.Attach(ch)()
		defer thread.Attach(ch)()
		defer ch.Close()
	}

	loadCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	if err := store.LoadInitial(loadCtx); err != nil {
		log.Printf("failed to load conversations: %v", err)
	}
	if p, err := posts.ListPosts(loadCtx); err == nil {
		log.Printf("loaded %d posts, %d conversations", len(p), len(store.List()))
	}
	cancel()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
}
