package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort            string        `mapstructure:"SERVER_PORT" validate:"required"`
	RedisUrl              string        `mapstructure:"REDIS_URL"`
	MongoUri              string        `mapstructure:"MONGO_URI"`
	MongoDatabase         string        `mapstructure:"MONGO_DATABASE" validate:"required_with=MongoUri"`
	IsLocalCors           bool          `mapstructure:"LOCAL_CORS"`
	SessionTTL            time.Duration `mapstructure:"SESSION_TTL" validate:"min=0"`
	MaxUploadBytes        int64         `mapstructure:"MAX_UPLOAD_BYTES" validate:"gt=0"`
	MaxRequestBytes       int64         `mapstructure:"MAX_REQUEST_BYTES" validate:"gt=0"`
	TreeCacheSize         int           `mapstructure:"TREE_CACHE_SIZE" validate:"gt=0"`
	ParserFormat          string        `mapstructure:"PARSER_FORMAT" validate:"oneof=auto plain sklearn"`
	ParserGrpcAddr        string        `mapstructure:"PARSER_GRPC_ADDR"`
	ParserGrpcPort        string        `mapstructure:"PARSER_GRPC_PORT" validate:"required"`
	ParserGrpcMaxMsgBytes int64         `mapstructure:"PARSER_GRPC_MAX_MSG_BYTES" validate:"gtfield=MaxUploadBytes"`
	ShutdownTimeout       time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"min=0"`
}

var keys = map[string]any{
	"SERVER_PORT":               "8080",
	"REDIS_URL":                 "",
	"MONGO_URI":                 "",
	"MONGO_DATABASE":            "tree_nav",
	"LOCAL_CORS":                false,
	"SESSION_TTL":               11 * time.Hour,
	"MAX_UPLOAD_BYTES":          int64(4 << 20),
	"MAX_REQUEST_BYTES":         int64(64 << 10),
	"TREE_CACHE_SIZE":           256,
	"PARSER_FORMAT":             "auto",
	"PARSER_GRPC_ADDR":          "",
	"PARSER_GRPC_PORT":          "8082",
	"PARSER_GRPC_MAX_MSG_BYTES": int64(16 << 20),
	"SHUTDOWN_TIMEOUT":          5 * time.Second,
}

// Setup loads cfgPath as a dotenv file when it exists, then reads every key
// from the environment. Empty REDIS_URL / MONGO_URI select in-memory storage.
func Setup(cfgPath string) (*Config, error) {
	if cfgPath != "" {
		if err := godotenv.Load(cfgPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", cfgPath, err)
		}
	}

	v := viper.New()
	for key, def := range keys {
		v.SetDefault(key, def)
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
