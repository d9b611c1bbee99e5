package config

import (
	"fmt"
	"resonance-server/internal/shared/utils"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Game      GameConfig
	Admin     AdminConfig
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	CookieSecure    bool
	CookieSameSite  string
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
}

// GameConfig holds the resource pipeline tuning constants
type GameConfig struct {
	ExtractionMaxPerCall int
	TravelTime           time.Duration
	SweepGrace           time.Duration
	SweepInterval        time.Duration
	InventoryCapacity    uint32
	StorageCapacity      uint32
	StorageCapPerOwner   int
	StorageMinSeparation float64
	OfferWindow          time.Duration
	BatchMaxPerFrequency uint32
	BatchMaxTotal        uint32
	RelayBufferCapacity  uint32
	RelayChargePerRoute  float64
	RelayTransitWindow   time.Duration
	LatticeRadius        float64
	SeedOrbsPerWorld     int
	SeedOrbUnitCount     uint32
}

type AdminConfig struct {
	Username    string
	DisplayName string
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	config := &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Auth:      loadAuthConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		Game:      loadGameConfig(),
		Admin:     loadAdminConfig(),
	}

	return config, nil
}

func loadRedisConfig() RedisConfig {
	enabled := utils.GetEnv("REDIS_ENABLED", "true") == "true"
	redisURL := utils.GetEnv("REDIS_URL", "")

	db, _ := strconv.Atoi(utils.GetEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:  enabled,
		URL:      redisURL,
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func loadServerConfig() ServerConfig {
	readTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_READ_TIMEOUT_SECONDS", "15"))
	writeTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_WRITE_TIMEOUT_SECONDS", "15"))
	idleTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_IDLE_TIMEOUT_SECONDS", "60"))

	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_IDLE_CONNS", "5"))
	connMaxLifetime, _ := strconv.Atoi(utils.GetEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "resonance"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
		MigrationsPath:  utils.GetEnv("DB_MIGRATIONS_PATH", "migrations"),
	}
}

func loadAuthConfig() AuthConfig {
	tokenExpiration, _ := strconv.Atoi(utils.GetEnv("JWT_EXPIRATION_HOURS", "24"))

	environment := utils.GetEnv("ENVIRONMENT", "development")
	cookieSecure := environment == "production"

	return AuthConfig{
		JWTSecret:       utils.GetEnv("JWT_SECRET", ""),
		TokenExpiration: time.Duration(tokenExpiration) * time.Hour,
		CookieSecure:    cookieSecure,
		CookieSameSite:  utils.GetEnv("COOKIE_SAME_SITE", "lax"),
	}
}

func loadFrontendConfig() FrontendConfig {
	corsDebug := utils.GetEnv("CORS_DEBUG", "") == "true"

	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: corsDebug,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	jsonFormat := environment == "production"

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		Format:     utils.GetEnv("LOG_FORMAT", "text"),
		JSONFormat: jsonFormat,
	}
}

func loadRateLimitConfig() RateLimitConfig {
	enabled := utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true"
	requestsPerSecond, _ := strconv.ParseFloat(utils.GetEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "10"), 64)
	burstSize, _ := strconv.Atoi(utils.GetEnv("RATE_LIMIT_BURST_SIZE", "20"))

	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burstSize,
	}
}

func loadGameConfig() GameConfig {
	extractionMax, _ := strconv.Atoi(utils.GetEnv("GAME_EXTRACTION_MAX_PER_CALL", "5"))
	travelTimeMs, _ := strconv.Atoi(utils.GetEnv("GAME_TRAVEL_TIME_MS", "3000"))
	sweepGraceMs, _ := strconv.Atoi(utils.GetEnv("GAME_SWEEP_GRACE_MS", "7000"))
	sweepIntervalMs, _ := strconv.Atoi(utils.GetEnv("GAME_SWEEP_INTERVAL_MS", "2000"))
	inventoryCapacity, _ := strconv.Atoi(utils.GetEnv("GAME_INVENTORY_CAPACITY", "300"))
	storageCapacity, _ := strconv.Atoi(utils.GetEnv("GAME_STORAGE_CAPACITY", "1000"))
	storageCapPerOwner, _ := strconv.Atoi(utils.GetEnv("GAME_STORAGE_CAP_PER_OWNER", "10"))
	storageMinSeparation, _ := strconv.ParseFloat(utils.GetEnv("GAME_STORAGE_MIN_SEPARATION", "5.0"), 64)
	offerWindowMin, _ := strconv.Atoi(utils.GetEnv("GAME_OFFER_WINDOW_MINUTES", "5"))
	batchMaxPerFrequency, _ := strconv.Atoi(utils.GetEnv("GAME_BATCH_MAX_PER_FREQUENCY", "5"))
	batchMaxTotal, _ := strconv.Atoi(utils.GetEnv("GAME_BATCH_MAX_TOTAL", "30"))
	relayBufferCapacity, _ := strconv.Atoi(utils.GetEnv("GAME_RELAY_BUFFER_CAPACITY", "30"))
	relayChargePerRoute, _ := strconv.ParseFloat(utils.GetEnv("GAME_RELAY_CHARGE_PER_ROUTE", "2.5"), 64)
	relayTransitWindowMs, _ := strconv.Atoi(utils.GetEnv("GAME_RELAY_TRANSIT_WINDOW_MS", "2000"))
	latticeRadius, _ := strconv.ParseFloat(utils.GetEnv("GAME_LATTICE_RADIUS", "40.0"), 64)
	seedOrbsPerWorld, _ := strconv.Atoi(utils.GetEnv("GAME_SEED_ORBS_PER_WORLD", "12"))
	seedOrbUnitCount, _ := strconv.Atoi(utils.GetEnv("GAME_SEED_ORB_UNIT_COUNT", "50"))

	return GameConfig{
		ExtractionMaxPerCall: extractionMax,
		TravelTime:           time.Duration(travelTimeMs) * time.Millisecond,
		SweepGrace:           time.Duration(sweepGraceMs) * time.Millisecond,
		SweepInterval:        time.Duration(sweepIntervalMs) * time.Millisecond,
		InventoryCapacity:    uint32(inventoryCapacity),
		StorageCapacity:      uint32(storageCapacity),
		StorageCapPerOwner:   storageCapPerOwner,
		StorageMinSeparation: storageMinSeparation,
		OfferWindow:          time.Duration(offerWindowMin) * time.Minute,
		BatchMaxPerFrequency: uint32(batchMaxPerFrequency),
		BatchMaxTotal:        uint32(batchMaxTotal),
		RelayBufferCapacity:  uint32(relayBufferCapacity),
		RelayChargePerRoute:  relayChargePerRoute,
		RelayTransitWindow:   time.Duration(relayTransitWindowMs) * time.Millisecond,
		LatticeRadius:        latticeRadius,
		SeedOrbsPerWorld:     seedOrbsPerWorld,
		SeedOrbUnitCount:     uint32(seedOrbUnitCount),
	}
}

func loadAdminConfig() AdminConfig {
	return AdminConfig{
		Username:    utils.GetEnv("ADMIN_USERNAME", "admin"),
		DisplayName: utils.GetEnv("ADMIN_DISPLAY_NAME", "Admin"),
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Server.URL == "" {
		return fmt.Errorf("SERVER_URL is required")
	}

	if c.Game.ExtractionMaxPerCall <= 0 {
		return fmt.Errorf("GAME_EXTRACTION_MAX_PER_CALL must be positive")
	}

	if c.Game.InventoryCapacity == 0 {
		return fmt.Errorf("GAME_INVENTORY_CAPACITY must be positive")
	}

	if c.Game.StorageCapacity == 0 {
		return fmt.Errorf("GAME_STORAGE_CAPACITY must be positive")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
