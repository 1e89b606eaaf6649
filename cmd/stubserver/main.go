package main

import (
	"context"
	"log"

	"agora/internal/config"
	"agora/internal/observability"
	"agora/internal/rabbitmq"
	"agora/internal/stubserver"
	"agora/internal/stubserver/repositories"
	"agora/internal/telemetry"
)

func main() {
	cfg, err := config.LoadStubServer()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	shutdownTracing, err := observability.SetupTracing(ctx, "agora-stubserver", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	database, err := stubserver.ConnectDB(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "audit.events", "agora-stubserver", cfg.Environment)

	userRepo := repositories.NewUserRepo(database)
	postRepo := repositories.NewPostRepo(database)
	commentRepo := repositories.NewCommentRepo(database)
	communityRepo := repositories.NewCommunityRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	auth := stubserver.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL)
	hub := stubserver.NewHub()

	handler := stubserver.NewHandler(userRepo, postRepo, commentRepo, communityRepo, conversationRepo, auth, audit)
	socket := stubserver.NewSocketHandler(hub, auth, conversationRepo, messageRepo, audit)

	router := stubserver.NewRouter(handler, socket, auth)

	log.Printf("stub server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
