package config

import (
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	Address    string `mapstructure:"address"`
	Mode       string `mapstructure:"mode"`
	EnableCORS bool   `mapstructure:"enable_cors"`
}

// UploadConfig carries the share policy defaults applied when the uploader
// does not specify them.
type UploadConfig struct {
	DefaultMaxViews   int   `mapstructure:"default_max_views"`
	DefaultExpiryMins int   `mapstructure:"default_expiry_mins"`
	MaxSizeBytes      int64 `mapstructure:"max_size_bytes"`
}

type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

type MinIOConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	BucketName string `mapstructure:"bucket_name"`
}

type DatabaseConfig struct {
	Type     string         `mapstructure:"type"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig holds the optional JWT secret used to extract an owner id from a
// bearer token. Empty secret disables verification; the owner id is then
// taken from the X-Owner-ID header or user_id query parameter as given.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

func Load() (*Config, error) {
	// .env first, matching the deployment layout; missing file is fine.
	_ = godotenv.Load()

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.enable_cors", true)
	viper.SetDefault("upload.default_max_views", 1)
	viper.SetDefault("upload.default_expiry_mins", 60)
	viper.SetDefault("upload.max_size_bytes", int64(100<<20))
	viper.SetDefault("storage.minio.endpoint", "localhost:9000")
	viper.SetDefault("storage.minio.use_ssl", false)
	viper.SetDefault("storage.minio.bucket_name", "secure-files")
	viper.SetDefault("database.type", "sqlite3")
	viper.SetDefault("database.sqlite.path", "./data/app.db")
	viper.SetDefault("database.postgres.port", 5432)
	viper.SetDefault("database.postgres.ssl_mode", "disable")
	viper.SetDefault("cache.redis.enabled", false)
	viper.SetDefault("cache.redis.address", "localhost:6379")
	viper.SetDefault("cache.redis.timeout", 3*time.Second)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/securevault-gateway")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	setEnvOverrides()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setEnvOverrides() {
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		viper.Set("server.address", addr)
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		viper.Set("server.mode", mode)
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		viper.Set("auth.jwt_secret", secret)
	}

	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		viper.Set("storage.minio.endpoint", endpoint)
	}
	if accessKey := os.Getenv("MINIO_ACCESS_KEY"); accessKey != "" {
		viper.Set("storage.minio.access_key", accessKey)
	}
	if secretKey := os.Getenv("MINIO_SECRET_KEY"); secretKey != "" {
		viper.Set("storage.minio.secret_key", secretKey)
	}
	if bucket := os.Getenv("MINIO_BUCKET_NAME"); bucket != "" {
		viper.Set("storage.minio.bucket_name", bucket)
	}

	if dbType := os.Getenv("DATABASE_TYPE"); dbType != "" {
		viper.Set("database.type", dbType)
	}
	if pgHost := os.Getenv("POSTGRES_HOST"); pgHost != "" {
		viper.Set("database.postgres.host", pgHost)
	}
	if pgPort := os.Getenv("POSTGRES_PORT"); pgPort != "" {
		if port, err := strconv.Atoi(pgPort); err == nil {
			viper.Set("database.postgres.port", port)
		}
	}
	if pgUser := os.Getenv("POSTGRES_USERNAME"); pgUser != "" {
		viper.Set("database.postgres.username", pgUser)
	}
	if pgPassword := os.Getenv("POSTGRES_PASSWORD"); pgPassword != "" {
		viper.Set("database.postgres.password", pgPassword)
	}
	if pgDatabase := os.Getenv("POSTGRES_DATABASE"); pgDatabase != "" {
		viper.Set("database.postgres.database", pgDatabase)
	}

	if redisAddr := os.Getenv("REDIS_ADDRESS"); redisAddr != "" {
		viper.Set("cache.redis.enabled", true)
		viper.Set("cache.redis.address", redisAddr)
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		viper.Set("cache.redis.password", redisPassword)
	}
	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			viper.Set("cache.redis.db", db)
		}
	}
}

// DriverName maps database.type to the registered sql driver.
func (c *Config) DriverName() string {
	switch c.Database.Type {
	case "postgres":
		return "postgres"
	default:
		return "sqlite3"
	}
}

// DSN builds the connection string for the configured database.
func (c *Config) DSN() string {
	switch c.Database.Type {
	case "postgres":
		return buildPostgresDSN(c.Database.Postgres)
	default:
		return c.Database.SQLite.Path
	}
}

func buildPostgresDSN(config PostgresConfig) string {
	dsn := "host=" + config.Host
	dsn += " port=" + strconv.Itoa(config.Port)
	dsn += " user=" + config.Username
	dsn += " password=" + config.Password
	dsn += " dbname=" + config.Database
	dsn += " sslmode=" + config.SSLMode
	return dsn
}

// GinMode maps server.mode to a gin mode.
func (c *Config) GinMode() string {
	switch c.Server.Mode {
	case "release", "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
