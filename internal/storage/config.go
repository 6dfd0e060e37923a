package storage

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	AI struct {
		Provider string `yaml:"provider"` // "gemini" or "ollama"

		Gemini struct {
			APIKey string `yaml:"api_key"`
			Model  string `yaml:"model"`
		} `yaml:"gemini"`

		Ollama struct {
			BaseURL string `yaml:"base_url"`
			Model   string `yaml:"model"`
		} `yaml:"ollama"`
	} `yaml:"ai"`

	Temperatures struct {
		Schedule float64 `yaml:"schedule"`
		Chat     float64 `yaml:"chat"`
	} `yaml:"temperatures,omitempty"`

	Web struct {
		Addr      string `yaml:"addr"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"web,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Database.Path = "./verdant.db"
	cfg.AI.Provider = "gemini"
	cfg.AI.Gemini.Model = "gemini-2.0-flash"
	cfg.AI.Ollama.BaseURL = "http://localhost:11434"
	cfg.AI.Ollama.Model = "llama3"
	// Default temperatures (can be overridden in config)
	cfg.Temperatures.Schedule = 0.4
	cfg.Temperatures.Chat = 0.6
	cfg.Web.Addr = ":8560"
	return cfg
}
