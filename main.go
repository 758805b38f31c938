package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/rs/zerolog/log"

	"pageinbox/config"
	"pageinbox/internal/adapters/graph"
	"pageinbox/internal/db"
	"pageinbox/internal/handlers"
	"pageinbox/internal/media"
	"pageinbox/internal/notify"
	"pageinbox/internal/services"
	"pageinbox/internal/store"
	"pageinbox/pkg/logger"
)

func main() {
	logger.InitLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	handle, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	if err := db.Migrate(handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	st, err := store.New(handle)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}

	graphClient, err := graph.NewClient(cfg.GraphBaseURL, cfg.GraphAppSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Graph client")
	}
	tokens, err := graph.NewCachedTokens(graphClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token source")
	}

	publisher, err := notify.NewPublisher(cfg.AmqpURL, cfg.QueuePrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize notification publisher")
	}
	defer publisher.Close()

	archiver := media.NewArchiver(media.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})

	conversationService, err := services.NewConversationService(st)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ConversationService")
	}
	customerService, err := services.NewCustomerService(st, graphClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize CustomerService")
	}
	reactionService, err := services.NewReactionService(st)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ReactionService")
	}
	messageService, err := services.NewMessageService(st, conversationService, customerService, reactionService, graphClient, publisher, archiver)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MessageService")
	}
	restoreService, err := services.NewPostRestoreService(st, graphClient, messageService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostRestoreService")
	}
	messageService.AttachRestorer(restoreService)

	replyService, err := services.NewReplyService(st, graphClient, tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ReplyService")
	}
	dispatcher, err := services.NewDispatcher(st, tokens, messageService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Dispatcher")
	}

	webhookHandler := handlers.NewWebhookHandler(st, dispatcher, cfg.VerifyToken)
	replyHandler := handlers.NewReplyHandler(st, replyService)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	router.HandleFunc(cfg.WebhookPath+"/{integrationID}", webhookHandler.Handle).
		Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/conversations/{conversationID}/reply", replyHandler.Handle).
		Methods(http.MethodPost)

	chain := alice.New(handlers.RequestLogger).Then(router)

	port := cfg.Port
	if port == "" {
		port = "8080"
		log.Info().Str("port", port).Msg("Defaulting to port")
	}

	log.Info().Str("port", port).Str("webhookPath", cfg.WebhookPath).Msg("Server starting")
	if err := http.ListenAndServe(":"+port, chain); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
