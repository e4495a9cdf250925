package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Pipeline PipelineConfig
	Corpus   CorpusConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	EventsTopic        string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	OpenAI       string
}

type AIConfig struct {
	LLMProvider    string // "gemini", "openai" or "ollama"
	LLMModel       string
	GroundingModel string
	OllamaBaseURL  string
}

type PipelineConfig struct {
	DuplicateWindow  time.Duration
	DuplicateWait    time.Duration
	HistoryTurns     int
	MaxLanes         int
	ConcurrentLanes  bool
	MinSnippetLength int
	PromptVersion    string
	TitleMaxLength   int
	MaxFollowUps     int
	ExtraTowns       []string
}

type CorpusConfig struct {
	Handle   string // Static file search store name; wins over Redis
	RedisKey string
	CacheTTL time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			EventsTopic:        getEnv("ANSWER_EVENTS_TOPIC", "answer.completed"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:       getEnv("LLM_MODEL", ""),
			GroundingModel: getEnv("GROUNDING_MODEL", "gemini-2.5-flash"),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Pipeline: PipelineConfig{
			DuplicateWindow:  getEnvAsDuration("PIPELINE_DUPLICATE_WINDOW", 120*time.Second),
			DuplicateWait:    getEnvAsDuration("PIPELINE_DUPLICATE_WAIT", 5*time.Second),
			HistoryTurns:     getEnvAsInt("PIPELINE_HISTORY_TURNS", 6),
			MaxLanes:         getEnvAsInt("PIPELINE_MAX_LANES", 3),
			ConcurrentLanes:  getEnvAsBool("PIPELINE_CONCURRENT_LANES", true),
			MinSnippetLength: getEnvAsInt("PIPELINE_MIN_SNIPPET_LENGTH", 80),
			PromptVersion:    getEnv("PIPELINE_PROMPT_VERSION", "v2"),
			TitleMaxLength:   getEnvAsInt("PIPELINE_TITLE_MAX", 60),
			MaxFollowUps:     getEnvAsInt("PIPELINE_MAX_FOLLOW_UPS", 3),
			ExtraTowns:       getEnvAsList("JURISDICTION_GAZETTEER"),
		},
		Corpus: CorpusConfig{
			Handle:   getEnv("CORPUS_HANDLE", ""),
			RedisKey: getEnv("CORPUS_REDIS_KEY", "corpus:file_search_store"),
			CacheTTL: getEnvAsDuration("CORPUS_CACHE_TTL", 10*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s") or bare seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
