package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afriplan/takeoff/internal/metrics"
	"github.com/afriplan/takeoff/internal/queue"
	"github.com/afriplan/takeoff/internal/storage"
	"github.com/afriplan/takeoff/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/afriplan/takeoff/pkg/ai"
	oai "github.com/afriplan/takeoff/pkg/ai/ollama"
	gai "github.com/afriplan/takeoff/pkg/ai/openai"
	"github.com/afriplan/takeoff/pkg/logger"
	"github.com/afriplan/takeoff/pkg/logger/console"
	pgxstore "github.com/afriplan/takeoff/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Init s3 client
	s3Client := storage.NewS3Client(ctx)

	// DrawingAIClient
	adapter := util.GetEnv("AI_ADAPTER")
	var aiClient ai.DrawingAIClient

	switch adapter {
	case "ollama":
		client, err := oai.NewDrawingOllamaClient(oai.NewDrawingOllamaClientParams{
			ClassifyModel: util.GetEnv("AI_CLASSIFY_MODEL"),
			ExtractModel:  util.GetEnv("AI_EXTRACT_MODEL"),
			EscalateModel: util.GetEnv("AI_ESCALATE_MODEL"),
			VisionModel:   util.GetEnv("AI_VISION_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = client
	default:
		aiClient = gai.NewDrawingOpenAIClient(gai.NewDrawingOpenAIClientParams{
			ClassifyModel: util.GetEnv("AI_CLASSIFY_MODEL"),
			ExtractModel:  util.GetEnv("AI_EXTRACT_MODEL"),
			EscalateModel: util.GetEnv("AI_ESCALATE_MODEL"),
			VisionModel:   util.GetEnv("AI_VISION_MODEL"),

			ChatURL:   util.GetEnv("AI_CHAT_URL"),
			ChatKey:   util.GetEnv("AI_CHAT_KEY"),
			VisionURL: util.GetEnv("AI_VISION_URL"),
			VisionKey: util.GetEnv("AI_VISION_KEY"),
		})
	}

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	dbStore := pgxstore.NewTakeoffDBStore(pgConn)

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.TakeoffQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	// One message at a time keeps model usage predictable
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	messageChan := make(chan amqp.Delivery)

	go func() {
		consumerTag := fmt.Sprintf("%s_consumer", queue.TakeoffQueue)
		msgs, err := consumerCh.Consume(
			queue.TakeoffQueue,
			consumerTag,
			false, // autoAck
			false, // exclusive
			false, // noLocal
			false, // noWait
			nil,   // args
		)
		if err != nil {
			logger.Fatal("Failed to start consuming", "queue", queue.TakeoffQueue, "err", err)
		}

		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping consumer", "queue", queue.TakeoffQueue)
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed", "queue", queue.TakeoffQueue)
					return
				}
				messageChan <- msg
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", queue.TakeoffQueue)

				processingErr := queue.ProcessTakeoffMessage(
					ctx, s3Client, aiClient, dbStore, dbStore, string(msg.Body))

				if processingErr != nil {
					logger.Error("Error processing message", "queue", queue.TakeoffQueue, "err", processingErr)
					metrics.RunsProcessed.WithLabelValues("error").Inc()
					queue.HandleProcessingError(consumerCh, msg, queue.TakeoffQueue)
				} else {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					metrics.RunsProcessed.WithLabelValues("ok").Inc()
					logger.Info("Message processed successfully", "queue", queue.TakeoffQueue)
				}

				modelMetrics := aiClient.GetMetrics()
				metrics.ModelTokens.WithLabelValues("input").Add(float64(modelMetrics.InputTokens))
				metrics.ModelTokens.WithLabelValues("output").Add(float64(modelMetrics.OutputTokens))

				aiDuration := time.Duration(modelMetrics.DurationMs) * time.Millisecond
				aiHours := int(aiDuration.Hours())
				aiMinutes := int(aiDuration.Minutes()) % 60
				aiSeconds := int(aiDuration.Seconds()) % 60
				logger.Info(
					"AI Metrics",
					"input_tokens", modelMetrics.InputTokens,
					"output_tokens", modelMetrics.OutputTokens,
					"total_tokens", modelMetrics.TotalTokens,
					"duration", fmt.Sprintf("%02d:%02d:%02d", aiHours, aiMinutes, aiSeconds),
				)

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				)
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}
