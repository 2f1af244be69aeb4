package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "./config/config.prod.yml"

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		Mode           string   `yaml:"mode"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Cognito struct {
		AppClientId     string `yaml:"appClientId"`
		AppClientSecret string `yaml:"appClientSecret"`
		UserPoolId      string `yaml:"userPoolId"`
		Region          string `yaml:"region"`
	} `yaml:"cognito"`

	Google struct {
		ClientId string `yaml:"clientId"`
	} `yaml:"google"`

	LLM struct {
		// Provider is one of gemini, anthropic or openai.
		Provider string `yaml:"provider"`
		// Temperature is a pointer so an explicit 0 survives defaulting.
		Temperature *float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Gemini struct {
		ApiKey           string `yaml:"apiKey"`
		Model            string `yaml:"model"`
		FilePollSeconds  int    `yaml:"filePollSeconds"`
		FilePollAttempts int    `yaml:"filePollAttempts"`
	} `yaml:"gemini"`

	Anthropic struct {
		ApiKey    string `yaml:"apiKey"`
		Model     string `yaml:"model"`
		MaxTokens int64  `yaml:"maxTokens"`
	} `yaml:"anthropic"`

	Openai struct {
		GptApiKey string `yaml:"gptApiKey"`
		Model     string `yaml:"model"`
	} `yaml:"openai"`

	Database struct {
		URI string `yaml:"uri"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	JWT struct {
		Secret string `yaml:"secret"`
		Expiry int    `yaml:"expiry"` // minutes
	} `yaml:"jwt"`

	Storage struct {
		AvatarBucket  string `yaml:"avatarBucket"`
		PublicBaseURL string `yaml:"publicBaseURL"`
	} `yaml:"storage"`

	Quiz struct {
		MaxUploadBytes     int64 `yaml:"maxUploadBytes"`
		SessionTTLMinutes  int   `yaml:"sessionTTLMinutes"`
		GenerationsPerHour int   `yaml:"generationsPerHour"`
	} `yaml:"quiz"`

	Transcript struct {
		MaxChars        int `yaml:"maxChars"`
		CacheTTLMinutes int `yaml:"cacheTTLMinutes"`
	} `yaml:"transcript"`

	Telemetry struct {
		Enabled     bool   `yaml:"enabled"`
		Endpoint    string `yaml:"endpoint"`
		Insecure    bool   `yaml:"insecure"`
		ServiceName string `yaml:"serviceName"`
	} `yaml:"telemetry"`
}

// LoadConfig reads the configuration file, then applies .env and environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns CONFIG_PATH or the default production config location.
func Path() string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) applyEnv() {
	setString(&c.Gemini.ApiKey, "GEMINI_API_KEY")
	setString(&c.Anthropic.ApiKey, "ANTHROPIC_API_KEY")
	setString(&c.Openai.GptApiKey, "OPENAI_API_KEY")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.Database.URI, "MONGODB_URI")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.Cognito.AppClientId, "COGNITO_APP_CLIENT_ID")
	setString(&c.Cognito.AppClientSecret, "COGNITO_APP_CLIENT_SECRET")
	setString(&c.Cognito.UserPoolId, "COGNITO_USER_POOL_ID")
	setString(&c.Cognito.Region, "COGNITO_REGION")
	setString(&c.Google.ClientId, "GOOGLE_CLIENT_ID")
	setString(&c.Storage.AvatarBucket, "AVATAR_GCS_BUCKET_NAME")
	setString(&c.Server.Mode, "SERVER_MODE")
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

const DefaultTemperature = 0.9

// Temperature returns the configured sampling temperature, or the default
// when the config was built without LoadConfig.
func (c *Config) Temperature() float64 {
	if c.LLM.Temperature == nil {
		return DefaultTemperature
	}
	return *c.LLM.Temperature
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 1313
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "dev"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.Cognito.Region == "" {
		c.Cognito.Region = "ap-south-1"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.Temperature == nil {
		t := DefaultTemperature
		c.LLM.Temperature = &t
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Gemini.FilePollSeconds == 0 {
		c.Gemini.FilePollSeconds = 2
	}
	if c.Gemini.FilePollAttempts == 0 {
		c.Gemini.FilePollAttempts = 15
	}
	if c.Anthropic.MaxTokens == 0 {
		c.Anthropic.MaxTokens = 8192
	}
	if c.JWT.Expiry == 0 {
		c.JWT.Expiry = 24 * 60
	}
	if c.Quiz.MaxUploadBytes == 0 {
		c.Quiz.MaxUploadBytes = 5 * 1024 * 1024
	}
	if c.Quiz.SessionTTLMinutes == 0 {
		c.Quiz.SessionTTLMinutes = 24 * 60
	}
	if c.Quiz.GenerationsPerHour == 0 {
		c.Quiz.GenerationsPerHour = 30
	}
	if c.Transcript.MaxChars == 0 {
		c.Transcript.MaxChars = 30000
	}
	if c.Transcript.CacheTTLMinutes == 0 {
		c.Transcript.CacheTTLMinutes = 12 * 60
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "cavision"
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URI == "" {
		errs = append(errs, errors.New("database.uri is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini":
		if c.Gemini.ApiKey == "" {
			errs = append(errs, errors.New("gemini.apiKey is required for the gemini provider"))
		}
	case "anthropic":
		if c.Anthropic.ApiKey == "" {
			errs = append(errs, errors.New("anthropic.apiKey is required for the anthropic provider"))
		}
	case "openai":
		if c.Openai.GptApiKey == "" {
			errs = append(errs, errors.New("openai.gptApiKey is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("llm.temperature %v out of range [0,2]", *t))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
