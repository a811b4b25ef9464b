package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"gosementes/internal/domain"
)

// Config armazena todas as configurações do serviço de câmaras frias.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string

	// Banco de Dados (PostgreSQL)
	DatabaseURL string
	DBTimeout   time.Duration

	// Cache (Redis)
	RedisAddr       string
	CacheTimeout    time.Duration
	ProductCacheTTL time.Duration

	// Segurança (JWT)
	JWTSecretKey string
	TokenExpiry  time.Duration

	// Administrador inicial (opcional)
	AdminEmail    string
	AdminPassword string

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Eventos (RabbitMQ). AMQPURL vazio desliga a publicação.
	AMQPURL      string
	AMQPExchange string

	// Localizações
	MaxLocationsPerChamber    int
	MaxQuadras                int
	MaxLados                  int
	MaxFilas                  int
	MaxAndares                int
	DefaultLocationCapacityKg decimal.Decimal
	LadoAsLetter              bool
	LocateMaxCandidates       int
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
func LoadConfig() *Config {
	cfg := &Config{
		// 1. Geral
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// 2. Banco de Dados (PostgreSQL)
		// mustGetEnv garante que a aplicação não inicie sem credenciais de DB
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		DBTimeout:   getDurationEnv("DB_TIMEOUT_SEC", 5) * time.Second,

		// 3. Cache (Redis)
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTimeout:    getDurationEnv("CACHE_TIMEOUT_SEC", 10) * time.Second,
		ProductCacheTTL: getDurationEnv("PRODUCT_CACHE_TTL_SEC", 300) * time.Second,

		// 4. Segurança (JWT)
		JWTSecretKey: mustGetEnv("JWT_SECRET_KEY"),
		TokenExpiry:  getDurationEnv("JWT_EXPIRY_MIN", 60) * time.Minute,

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		// 5. Rate Limiting
		RateLimitMaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitPeriod:      getDurationEnv("RATE_LIMIT_PERIOD_MIN", 1) * time.Minute,

		// 6. Eventos
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gosementes.events"),

		// 7. Localizações
		MaxLocationsPerChamber:    getIntEnv("MAX_LOCATIONS_PER_CHAMBER", domain.DefaultMaxLocations),
		MaxQuadras:                getIntEnv("MAX_QUADRAS", 100),
		MaxLados:                  getIntEnv("MAX_LADOS", domain.MaxLadoLetters),
		MaxFilas:                  getIntEnv("MAX_FILAS", 100),
		MaxAndares:                getIntEnv("MAX_ANDARES", 20),
		DefaultLocationCapacityKg: getDecimalEnv("DEFAULT_LOCATION_CAPACITY_KG", decimal.NewFromInt(1000)),
		LadoAsLetter:              getBoolEnv("LADO_AS_LETTER", true),
		LocateMaxCandidates:       getIntEnv("LOCATE_MAX_CANDIDATES", 20),
	}

	return cfg
}

// LocationLimits converte as chaves de localização no valor consumido pelo registro de localizações.
func (c *Config) LocationLimits() domain.LocationLimits {
	return domain.LocationLimits{
		MaxPerAxis: domain.ChamberDimensions{
			Quadras: c.MaxQuadras,
			Lados:   c.MaxLados,
			Filas:   c.MaxFilas,
			Andares: c.MaxAndares,
		},
		MaxTotal:          c.MaxLocationsPerChamber,
		DefaultCapacityKg: c.DefaultLocationCapacityKg,
		LadoAsLetter:      c.LadoAsLetter,
	}
}

// Funções Helpers (Auxiliares)

// getEnv lê a variável de ambiente ou retorna um valor padrão.
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// mustGetEnv lê a variável de ambiente, fatal se não estiver presente.
func mustGetEnv(key string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Fatalf("❌ Erro de Configuração: A variável de ambiente %s deve ser definida.", key)
	return ""
}

// getDurationEnv lê uma variável de ambiente numérica e retorna-a como time.Duration.
func getDurationEnv(key string, defaultValue int) time.Duration {
	return time.Duration(getIntEnv(key, defaultValue))
}

// getIntEnv lê uma variável de ambiente numérica e retorna-a como int.
func getIntEnv(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um número inteiro válido. Usando padrão (%d).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// getBoolEnv lê uma variável booleana ("true", "1", "false", ...).
func getBoolEnv(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é booleano. Usando padrão (%t).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// getDecimalEnv lê um valor decimal exato (pesos em kg).
func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := decimal.NewFromString(valueStr)
	if err != nil || !value.IsPositive() {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um decimal positivo. Usando padrão (%s).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
