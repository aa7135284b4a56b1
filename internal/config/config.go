package config

import "os"

type Config struct {
	Addr          string
	DBPath        string
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
}

// Load builds the configuration from environment variables, falling back to
// local-development defaults.
func Load() Config {
	return Config{
		Addr:          getenv("ADDR", ":8100"),
		DBPath:        getenv("DB_PATH", "hearth.db"),
		OpenAIBaseURL: getenv("OPENAI_BASE_URL", "http://localhost:11434/v1/"),
		OpenAIAPIKey:  getenv("OPENAI_API_KEY", ""),
		OpenAIModel:   getenv("OPENAI_MODEL", "llama3.1:8b"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
