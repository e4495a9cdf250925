package bootstrap

import (
	"context"
	"time"

	"municipal-assistant-be/internal/config"
	"municipal-assistant-be/internal/controller"
	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/internal/repository/contract"
	"municipal-assistant-be/internal/repository/memory"
	"municipal-assistant-be/internal/repository/store"
	"municipal-assistant-be/internal/repository/unitofwork"
	"municipal-assistant-be/internal/service"
	"municipal-assistant-be/pkg/ai/audit"
	"municipal-assistant-be/pkg/ai/followup"
	"municipal-assistant-be/pkg/ai/generator"
	"municipal-assistant-be/pkg/ai/pipeline"
	"municipal-assistant-be/pkg/ai/planner"
	"municipal-assistant-be/pkg/ai/router"
	"municipal-assistant-be/pkg/ai/scope"
	"municipal-assistant-be/pkg/corpus"
	"municipal-assistant-be/pkg/events"
	"municipal-assistant-be/pkg/llm/factory"
	pktNats "municipal-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const module = "BOOTSTRAP"

type Container struct {
	// Controllers
	ChatbotController controller.IChatbotController

	ChatbotService service.IChatbotService

	// Background Services (Exposed for main.go to run)
	AnalyticsConsumer service.IAnalyticsConsumerService

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires every collaborator. db may be nil, in which case
// sessions live in memory.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	// 1. Session store
	var sessions contract.SessionStore
	if db != nil {
		sessions = store.NewGormSessionStore(unitofwork.NewRepositoryFactory(db))
	} else {
		sysLogger.Warn(module, "No database configured, sessions are kept in memory", nil)
		sessions = memory.NewSessionStore(24 * time.Hour)
	}

	// 2. Model providers
	llmCfg := factory.Config{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		GeminiAPIKey:  cfg.Keys.GoogleGemini,
		GeminiModel:   cfg.Ai.GroundingModel,
		OpenAIAPIKey:  cfg.Keys.OpenAI,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
	}
	textProvider, err := factory.NewLLMProvider(llmCfg)
	if err != nil {
		return nil, err
	}
	groundingProvider, err := factory.NewGroundingProvider(llmCfg)
	if err != nil {
		return nil, err
	}
	sysLogger.Info(module, "Model providers ready", map[string]interface{}{
		"provider":  cfg.Ai.LLMProvider,
		"model":     cfg.Ai.LLMModel,
		"grounding": cfg.Ai.GroundingModel,
	})

	// 3. Pipeline stages
	prompts := generator.NewPrompts(cfg.Pipeline.PromptVersion)
	classifier := scope.NewClassifier(cfg.Pipeline.ExtraTowns...)
	answerer := pipeline.NewPipeline(pipeline.Stages{
		Router:  router.NewRouter(textProvider, sysLogger),
		Planner: planner.NewPlanner(textProvider, sysLogger),
		Simple:  generator.NewSimpleGenerator(groundingProvider, textProvider, classifier, prompts, sysLogger),
		Complex: generator.NewComplexGenerator(groundingProvider, textProvider, generator.ComplexOptions{
			MaxLanes:         cfg.Pipeline.MaxLanes,
			Concurrent:       cfg.Pipeline.ConcurrentLanes,
			MinSnippetLength: cfg.Pipeline.MinSnippetLength,
		}, prompts, sysLogger),
		Auditor:   audit.NewAuditor(),
		Scope:     classifier,
		FollowUps: followup.NewGenerator(textProvider, cfg.Pipeline.MaxFollowUps, sysLogger),
	}, cfg.Pipeline.HistoryTurns, sysLogger)

	// 4. Corpus handle
	var reader corpus.Reader
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn(module, "Failed to parse Redis URL, using it as address", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			sysLogger.Warn(module, "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		reader = rdb
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	corpusProvider := corpus.NewProvider(cfg.Corpus.Handle, reader, cfg.Corpus.RedisKey, cfg.Corpus.CacheTTL)

	// 5. Event bus
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	publishers := events.MultiPublisher{events.NewChannelPublisher(pubSub, cfg.App.EventsTopic)}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn(module, "Failed to connect to NATS, events stay in-process", map[string]interface{}{"error": err.Error()})
		} else {
			publishers = append(publishers, natsPub)
			c.closers = append(c.closers, natsPub.Close)
		}
	}
	c.AnalyticsConsumer = service.NewAnalyticsConsumerService(pubSub, cfg.App.EventsTopic, sysLogger)

	// 6. Services and controllers
	chatbotService := service.NewChatbotService(sessions, answerer, corpusProvider, publishers, service.ChatbotOptions{
		DuplicateWindow: cfg.Pipeline.DuplicateWindow,
		DuplicateWait:   cfg.Pipeline.DuplicateWait,
		HistoryTurns:    cfg.Pipeline.HistoryTurns,
		TitleMaxLength:  cfg.Pipeline.TitleMaxLength,
		PromptVersion:   cfg.Pipeline.PromptVersion,
	}, sysLogger)
	c.ChatbotService = chatbotService
	c.ChatbotController = controller.NewChatbotController(chatbotService)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
