package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		GroupID string   `mapstructure:"group_id"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret     string        `mapstructure:"jwt_secret"`
		TokenLifespan time.Duration `mapstructure:"token_lifespan"`
	} `mapstructure:"auth"`
	Avatar struct {
		MaxSize           int64    `mapstructure:"max_size"`
		AllowedExtensions []string `mapstructure:"allowed_extensions"`
		// Mirror selects an optional CDN copy: "", "cloudinary" or "s3".
		Mirror string `mapstructure:"mirror"`
	} `mapstructure:"avatar"`
	Cloudinary struct {
		CloudName string `mapstructure:"cloud_name"`
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	} `mapstructure:"cloudinary"`
	S3 struct {
		Endpoint     string `mapstructure:"endpoint"`
		Region       string `mapstructure:"region"`
		Bucket       string `mapstructure:"bucket"`
		AccessKey    string `mapstructure:"access_key"`
		SecretKey    string `mapstructure:"secret_key"`
		UsePathStyle bool   `mapstructure:"use_path_style"`
	} `mapstructure:"s3"`
	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"smtp"`
	Tracing struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"tracing"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("redis.cache_ttl", 5*time.Minute)
	v.SetDefault("kafka.group_id", "user-notification-group")
	v.SetDefault("auth.token_lifespan", 720*time.Hour)
	v.SetDefault("avatar.max_size", 3000000)
	v.SetDefault("avatar.allowed_extensions", []string{"jpg", "jpeg", "png"})
	v.SetDefault("smtp.port", 587)
}

// LoadConfig reads .env, then config.yaml from the given paths (default "."),
// then environment variables, later sources winning.
func LoadConfig(paths ...string) (cfg Config, err error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	if err = godotenv.Load(); err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	v := viper.New()
	setDefaults(v)

	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read .env only. Error: %v", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("db.dsn", "DB_DSN")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.cache_ttl", "REDIS_CACHE_TTL")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.token_lifespan", "TOKEN_LIFESPAN")

	v.BindEnv("avatar.max_size", "AVATAR_MAX_SIZE")
	v.BindEnv("avatar.allowed_extensions", "AVATAR_ALLOWED_EXTENSIONS")
	v.BindEnv("avatar.mirror", "AVATAR_MIRROR")

	v.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("cloudinary.api_secret", "CLOUDINARY_API_SECRET")

	v.BindEnv("s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("s3.region", "AWS_REGION")
	v.BindEnv("s3.bucket", "S3_BUCKET_NAME")
	v.BindEnv("s3.access_key", "AWS_ACCESS_KEY_ID")
	v.BindEnv("s3.secret_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("s3.use_path_style", "S3_USE_PATH_STYLE")

	v.BindEnv("smtp.host", "SMTP_HOST")
	v.BindEnv("smtp.port", "SMTP_PORT")
	v.BindEnv("smtp.username", "SMTP_USERNAME")
	v.BindEnv("smtp.password", "SMTP_PASSWORD")
	v.BindEnv("smtp.from", "SMTP_FROM")

	v.BindEnv("tracing.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	err = v.Unmarshal(&cfg)
	return
}
