package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"channel-chat-service/internal/broadcast"
	"channel-chat-service/internal/config"
	"channel-chat-service/internal/db"
	"channel-chat-service/internal/handlers"
	"channel-chat-service/internal/media"
	"channel-chat-service/internal/observability"
	"channel-chat-service/internal/presence"
	"channel-chat-service/internal/rabbitmq"
	"channel-chat-service/internal/repositories"
	"channel-chat-service/internal/telemetry"
	"channel-chat-service/internal/ws"
)

const serviceName = "channel-chat-service"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("zap.NewProduction: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("cannot parse env config: %v", err)
	}

	shutdownTracing, err := telemetry.Setup(context.Background(), serviceName, cfg.Environment, cfg.OTLPAddr)
	if err != nil {
		sugar.Fatalf("cannot set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalf("cannot connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, sugar)
	defer publisher.Close()

	hub := broadcast.NewHub(publisher, sugar)

	tracker := presence.NewTracker(hub, sugar, presence.Config{
		SweepInterval: cfg.PresenceSweepInterval,
		InactiveAfter: cfg.PresenceInactiveAfter,
	})
	go tracker.Run(context.Background())
	defer tracker.Stop()

	messageRepo := repositories.NewMessageRepo(database)

	messageHandler := handlers.NewMessageHandler(messageRepo, hub, sugar)
	presenceHandler := handlers.NewPresenceHandler(tracker)
	channelWS := ws.NewChannelHandler(hub, sugar)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		observability.HTTPMetricsMiddleware(),
		otelgin.Middleware(serviceName),
	)

	router.POST("/messages", messageHandler.PostMessage)
	router.GET("/messages", messageHandler.GetMessages)
	router.PATCH("/messages", messageHandler.PatchReaction)
	router.PATCH("/messages/seen", messageHandler.PatchSeen)

	router.POST("/presence", presenceHandler.PostPresence)
	router.GET("/presence", presenceHandler.GetPresence)

	if cfg.MediaUploadURL != "" {
		uploader := media.NewHTTPUploader(cfg.MediaUploadURL, cfg.MediaTimeout)
		uploadHandler := handlers.NewUploadHandler(uploader, sugar)
		router.POST("/upload", uploadHandler.PostUpload)
	} else {
		sugar.Warn("MEDIA_UPLOAD_URL not set, /upload disabled")
	}

	router.GET("/ws", channelWS.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sugar.Infow("server starting", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}
