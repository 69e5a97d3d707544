package config

import (
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	JWT    JWTConfig
	Notify NotifyConfig
	Kafka  KafkaConfig
}

var (
	ConfigInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret string
}

type NotifyConfig struct {
	HeartbeatInterval time.Duration
	QueueLimit        int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

func LoadConfig() (*Config, error) {
	once.Do(func() {
		// .env is optional; real deployments set the environment directly
		_ = godotenv.Load()

		viper.SetDefault("NOTIFY_HOST", "")
		viper.SetDefault("NOTIFY_PORT", "8080")
		viper.SetDefault("NOTIFY_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("NOTIFY_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("NOTIFY_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("NOTIFY_JWT_SECRET", "")
		viper.SetDefault("NOTIFY_HEARTBEAT_INTERVAL", 30*time.Second)
		viper.SetDefault("NOTIFY_QUEUE_LIMIT", 100)
		viper.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("REDIS_MAX_RETRIES", 3)
		viper.SetDefault("REDIS_POOL_SIZE", 100)
		viper.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
		viper.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
		viper.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
		viper.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
		viper.SetDefault("KAFKA_BROKERS", "")
		viper.SetDefault("KAFKA_TOPIC", "platform.events")
		viper.SetDefault("KAFKA_GROUP", "notify-service")
		viper.AutomaticEnv()

		ConfigInstance = &Config{
			Server: ServerConfig{
				Host:         viper.GetString("NOTIFY_HOST"),
				Port:         viper.GetString("NOTIFY_PORT"),
				ReadTimeout:  viper.GetDuration("NOTIFY_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("NOTIFY_WRITE_TIMEOUT"),
				IdleTimeout:  viper.GetDuration("NOTIFY_IDLE_TIMEOUT"),
			},
			Redis: RedisConfig{
				Addr:         viper.GetString("REDIS_ADDR"),
				Password:     viper.GetString("REDIS_PASSWORD"),
				DB:           viper.GetInt("REDIS_DB"),
				MaxRetries:   viper.GetInt("REDIS_MAX_RETRIES"),
				DialTimeout:  viper.GetDuration("REDIS_DIAL_TIMEOUT"),
				ReadTimeout:  viper.GetDuration("REDIS_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("REDIS_WRITE_TIMEOUT"),
				PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
				MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
			},
			JWT: JWTConfig{
				Secret: viper.GetString("NOTIFY_JWT_SECRET"),
			},
			Notify: NotifyConfig{
				HeartbeatInterval: viper.GetDuration("NOTIFY_HEARTBEAT_INTERVAL"),
				QueueLimit:        viper.GetInt("NOTIFY_QUEUE_LIMIT"),
			},
			Kafka: KafkaConfig{
				// env values arrive as one string; brokers are comma-separated
				Brokers: splitBrokers(viper.GetString("KAFKA_BROKERS")),
				Topic:   viper.GetString("KAFKA_TOPIC"),
				Group:   viper.GetString("KAFKA_GROUP"),
			},
		}
	})

	return ConfigInstance, nil
}

// splitBrokers turns "a:9092, b:9092" into {"a:9092", "b:9092"}; an empty
// value yields no brokers.
func splitBrokers(value string) []string {
	brokers := make([]string, 0)
	for _, broker := range strings.Split(value, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
