package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/37-Inc/goose.gifts/internal/models"
)

// Config carries all service settings, including the pipeline width knobs.
// Widths are plain fields passed into the pipeline constructor so tests can
// exercise small and large fan-outs deterministically.
type Config struct {
	ProjectID    string
	GeminiAPIKey string
	GeminiModel  string
	Port         string

	ConceptCount         int
	QueriesPerConcept    int
	MaxProductsBeforeLLM int
	ProductsPerBundle    int

	SearchConcurrency int
	SearchTimeout     time.Duration
	LLMTimeout        time.Duration
	SearchRatePerSec  float64
	Sources           []models.Source

	MaxSlugAttempts int
	SlugMaxLength   int
	ListFetchLimit  int
}

func Load() (*Config, error) {
	// Local development convenience; in deployment the env is already set.
	_ = godotenv.Load()

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required but not set")
	}

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY not set, bundle generation will fail until it is configured")
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-2.0-flash"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	conceptCount, err := intFromEnv("GIFT_CONCEPTS_COUNT", 3)
	if err != nil {
		return nil, err
	}
	queriesPerConcept, err := intFromEnv("QUERIES_PER_CONCEPT", 4)
	if err != nil {
		return nil, err
	}
	maxBeforeLLM, err := intFromEnv("MAX_PRODUCTS_BEFORE_LLM", 12)
	if err != nil {
		return nil, err
	}
	productsPerBundle, err := intFromEnv("PRODUCTS_PER_BUNDLE", 10)
	if err != nil {
		return nil, err
	}
	searchConcurrency, err := intFromEnv("SEARCH_CONCURRENCY", 5)
	if err != nil {
		return nil, err
	}

	searchTimeout, err := durationFromEnv("SEARCH_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	llmTimeout, err := durationFromEnv("LLM_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	searchRate := 2.0
	if v := os.Getenv("SEARCH_RATE_PER_SEC"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SEARCH_RATE_PER_SEC %q: %w", v, err)
		}
		searchRate = parsed
	}

	sources := []models.Source{models.SourceAmazon, models.SourceEtsy}
	if v := os.Getenv("PRODUCT_SOURCES"); v != "" {
		sources = sources[:0]
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(strings.ToLower(s))
			if s != "" {
				sources = append(sources, models.Source(s))
			}
		}
		if len(sources) == 0 {
			return nil, fmt.Errorf("PRODUCT_SOURCES %q contains no usable sources", v)
		}
	}

	return &Config{
		ProjectID:            projectID,
		GeminiAPIKey:         geminiAPIKey,
		GeminiModel:          geminiModel,
		Port:                 port,
		ConceptCount:         conceptCount,
		QueriesPerConcept:    queriesPerConcept,
		MaxProductsBeforeLLM: maxBeforeLLM,
		ProductsPerBundle:    productsPerBundle,
		SearchConcurrency:    searchConcurrency,
		SearchTimeout:        searchTimeout,
		LLMTimeout:           llmTimeout,
		SearchRatePerSec:     searchRate,
		Sources:              sources,
		MaxSlugAttempts:      5,
		SlugMaxLength:        48,
		ListFetchLimit:       500,
	}, nil
}

func intFromEnv(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, v)
	}
	return parsed, nil
}

func durationFromEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return parsed, nil
}
