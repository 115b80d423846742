package configs

import (
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Host string `env:"HOST,default=0.0.0.0"`
	Port int    `env:"PORT,default=8080"`

	MongoURI    string        `env:"MONGODB_URI,required=true"`
	MongoDBName string        `env:"MONGODB_NAME,default=patas-arriba"`
	MongoPing   time.Duration `env:"MONGODB_PING_TIMEOUT,default=10s"`

	JWTSecret      string   `env:"JWT_SECRET,required=true"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=*"`

	VAPIDSubject    string        `env:"VAPID_SUBJECT,default=mailto:info@patasarriba.org"`
	VAPIDPublicKey  string        `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `env:"VAPID_PRIVATE_KEY"`
	PushTTL         int           `env:"PUSH_TTL,default=86400"`
	PushTimeout     time.Duration `env:"PUSH_TIMEOUT,default=10s"`
	PushAttempts    int           `env:"PUSH_ATTEMPTS,default=3"`

	NotificationWorkers     int `env:"NOTIFICATION_WORKERS,default=4"`
	NotificationQueueSize   int `env:"NOTIFICATION_QUEUE_SIZE,default=1024"`
	NotificationParallelism int `env:"NOTIFICATION_PARALLELISM,default=16"`

	RegistryShards    int           `env:"REGISTRY_SHARDS,default=32"`
	SocketSendTimeout time.Duration `env:"SOCKET_SEND_TIMEOUT,default=5s"`
	SocketBufferSize  int           `env:"SOCKET_BUFFER_SIZE,default=64"`

	ForwardOnlyStatus bool `env:"FORWARD_ONLY_STATUS,default=false"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`
}

// PushEnabled reports whether VAPID keys are configured.
func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads an optional .env file and then the environment. Variables already set win over the file.
func Load() (*Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	var config Config
	_, err = env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if config.JWTSecret == "" {
		return nil, errors.New("config error: JWT_SECRET is empty")
	}

	return &config, nil
}

// SetupLogger configures the global zerolog logger.
func SetupLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	}
}
