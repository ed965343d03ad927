package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

type Config struct {
	Env       string          `yaml:"env" env-default:"local"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type StorageConfig struct {
	Driver       string `yaml:"driver" env-default:"sqlite"`
	Path         string `yaml:"path" env-default:"./data/events.db"`
	PostgresAddr string `yaml:"postgres_addr"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr" env-default:"localhost:6379"`
	SessionTTL time.Duration `yaml:"session_ttl" env-default:"10m"`
}

type TelegramConfig struct {
	// Token comes from the environment only, never from the config file.
	Token       string        `env:"TELEGRAM_BOT_TOKEN" env-required:"true"`
	SendTimeout time.Duration `yaml:"send_timeout" env-default:"5s"`
}

type SchedulerConfig struct {
	Interval   time.Duration `yaml:"interval" env-default:"1s"`
	BatchLimit int           `yaml:"batch_limit" env-default:"100"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" env-default:"false"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic" env-default:"event_delivered"`
}

type MetricsConfig struct {
	Port int `yaml:"port" env-default:"9090"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file does not exist: " + path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath reads the config location from the --config flag or the
// CONFIG_PATH environment variable. The flag wins.
func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	return path
}
