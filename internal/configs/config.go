package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"idealista-parser-service/internal/constants"
	"idealista-parser-service/internal/core/domain"

	"github.com/joho/godotenv"
)

// IdealistaConfig - доступ к API
type IdealistaConfig struct {
	APIKey         string
	APISecret      string
	Token          string
	BaseURL        string
	TokenURL       string
	RequestTimeout time.Duration
	PageDelay      time.Duration
}

// Validate - ровно один способ авторизации: токен или пара ключ/секрет.
// Проверяется только командами, которые ходят в API.
func (c IdealistaConfig) Validate() error {
	tokenOnly := c.Token != "" && c.APIKey == "" && c.APISecret == ""
	keyPairOnly := c.Token == "" && c.APIKey != "" && c.APISecret != ""
	if !tokenOnly && !keyPairOnly {
		return fmt.Errorf("set either IDEALISTA_TOKEN or both IDEALISTA_API_KEY and IDEALISTA_API_SECRET, not both: %w", domain.ErrNoAuthMethod)
	}
	return nil
}

type RabbitMQConfig struct {
	// URL пустой - публикация страниц выключена
	URL string
}

type RESTConfig struct {
	Port           string
	AllowedOrigins []string
	// завершенные выгрузки хранятся RunRetention и не больше MaxFinishedRuns штук
	RunRetention    time.Duration
	MaxFinishedRuns int
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName       string
	Idealista     IdealistaConfig
	RabbitMQ      RabbitMQConfig
	REST          RESTConfig
	FluentBit     FluentBitConfig
	StdoutLogger  StdoutLogConfig
	LocationsFile string
}

// LoadConfig читает .env (если он есть) и переменные окружения.
// Отсутствующий .env не ошибка: все можно задать через окружение.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 && envPath[0] != "" {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not load .env file (path: %v): %w", envPath, err)
		}
		log.Printf("Info: .env file not found (path: %v), using process environment only.\n", envPath)
	}

	cfg := &AppConfig{}
	cfg.AppName = getEnvAsString("APP_NAME", "idealista-parser-service")

	cfg.Idealista.APIKey = os.Getenv("IDEALISTA_API_KEY")
	cfg.Idealista.APISecret = os.Getenv("IDEALISTA_API_SECRET")
	cfg.Idealista.Token = os.Getenv("IDEALISTA_TOKEN")
	cfg.Idealista.BaseURL = getEnvAsString("IDEALISTA_BASE_URL", constants.DefaultBaseURL)
	cfg.Idealista.TokenURL = getEnvAsString("IDEALISTA_TOKEN_URL", constants.DefaultTokenURL)
	cfg.Idealista.RequestTimeout = getEnvAsSeconds("REQUEST_TIMEOUT_SECONDS", constants.DefaultRequestTimeout)
	cfg.Idealista.PageDelay = getEnvAsSeconds("FETCH_DELAY_SECONDS", constants.DefaultPageDelay)

	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")

	cfg.REST.Port = getEnvAsString("REST_PORT", "8080")
	cfg.REST.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"})
	cfg.REST.RunRetention = getEnvAsSeconds("RUN_RETENTION_SECONDS", time.Hour)
	cfg.REST.MaxFinishedRuns = getEnvAsInt("MAX_FINISHED_RUNS", 100)

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "info")
	cfg.LocationsFile = getEnvAsString("LOCATIONS_FILE", "locationId_list.json")

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt логирует значение, которое не удалось разобрать, и возвращает default
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

// getEnvAsSeconds - целое число секунд; ноль и отрицательные значения заменяются default
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	seconds := getEnvAsInt(key, int(defaultValue/time.Second))
	if seconds <= 0 {
		log.Printf("Warning: Environment variable %s must be positive. Using default value: %s\n", key, defaultValue)
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}

func getEnvAsList(key string, defaultValue []string) []string {
	valStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valStr) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
