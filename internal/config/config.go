package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	RoleSales       = "sales"
	RoleLeaderboard = "leaderboard"
	RoleDraw        = "draw"
)

type LotteryConfig struct {
	Env   string   `yaml:"env" env:"ENV" env-default:"local"`
	Roles []string `yaml:"roles" env:"LOTTERY_ROLES" env-separator:","`

	GRPCServer     `yaml:"grpc_server"`
	HTTPServer     `yaml:"http_server"`
	LotteryDB      `yaml:"lottery_db"`
	Migrations     `yaml:"migrations"`
	LogConfig      `yaml:"log_config"`
	KafkaService   `yaml:"kafka_service"`
	Redis          `yaml:"redis"`
	PaymentGateway `yaml:"payment_gateway"`
	Basket         `yaml:"basket"`
	Inventory      `yaml:"inventory"`
	Settlement     `yaml:"settlement"`
	Scheduler      `yaml:"scheduler"`

	Countries    []string          `yaml:"countries" env:"LOTTERY_COUNTRIES" env-separator:","`
	LotteryTypes []LotteryTemplate `yaml:"lottery_types"`
	PrizeConfigs []PrizeConfig     `yaml:"prize_configurations"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

type HTTPServer struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type LotteryDB struct {
	Dsn             string        `yaml:"dsn" env:"LOTTERY_DB_DSN" env-required:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"20"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"30m"`
}

type Migrations struct {
	Path string `yaml:"path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

type LogConfig struct {
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat  string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	LogOutput  string `yaml:"log_output" env:"LOG_OUTPUT" env-default:"stdout"`
	MaxSizeMB  int    `yaml:"max_size_mb" env-default:"100"`
	MaxBackups int    `yaml:"max_backups" env-default:"7"`
	MaxAgeDays int    `yaml:"max_age_days" env-default:"14"`
}

type KafkaService struct {
	Brokers        []string      `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	GroupID        string        `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"lottery-service"`
	PollTimeout    time.Duration `yaml:"poll_timeout" env-default:"15s"`
	BatchSize      int           `yaml:"batch_size" env-default:"1000"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" env-default:"5s"`
	MaxRetries     int           `yaml:"max_retries" env-default:"5"`
	Topics         Topics        `yaml:"topics"`
}

type Topics struct {
	Schedules   string `yaml:"schedules" env-default:"lottery.schedules"`
	DrawConfigs string `yaml:"draw_configs" env-default:"lottery.draw-configs"`
	// Tickets is a prefix; each lottery type gets its own topic below it.
	Tickets string `yaml:"tickets" env-default:"lottery.tickets"`
	Results string `yaml:"results" env-default:"lottery.results"`
}

type Redis struct {
	Addr           string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password       string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB             int           `yaml:"db" env-default:"0"`
	LeaderboardTTL time.Duration `yaml:"leaderboard_ttl" env-default:"30s"`
}

type PaymentGateway struct {
	URL             string        `yaml:"url" env:"PAYMENT_GATEWAY_URL"`
	Timeout         time.Duration `yaml:"timeout" env-default:"30s"`
	MaxOrderRetries int           `yaml:"max_order_retries" env-default:"3"`
	Method          string        `yaml:"method" env-default:"card"`
}

type Basket struct {
	MaxTickets int           `yaml:"max_tickets" env-default:"50"`
	TTL        time.Duration `yaml:"ttl" env-default:"15m"`
}

type Inventory struct {
	BaseBatch    int `yaml:"base_batch" env-default:"1000"`
	LowWaterMark int `yaml:"low_water_mark" env-default:"100"`
	ChunkSize    int `yaml:"chunk_size" env-default:"500"`
}

type Settlement struct {
	GracePeriod time.Duration `yaml:"grace_period" env-default:"2m"`
}

type Scheduler struct {
	Interval     time.Duration `yaml:"interval" env-default:"1m"`
	ExpiryEvery  time.Duration `yaml:"expiry_interval" env-default:"30s"`
	GenerateDays int           `yaml:"generate_days" env-default:"2"`
	ExportBatch  int           `yaml:"export_batch" env-default:"1000"`
}

type LotteryTemplate struct {
	Type                 string          `yaml:"type"`
	Slots                []time.Duration `yaml:"slots"`
	WindowDays           int             `yaml:"window_days"`
	TicketCap            int             `yaml:"ticket_cap"`
	DrawDelay            time.Duration   `yaml:"draw_delay"`
	TicketPrice          string          `yaml:"ticket_price"`
	Currency             string          `yaml:"currency"`
	PrizeConfigurationID int64           `yaml:"prize_configuration_id"`
}

type PrizeConfig struct {
	ID          int64       `yaml:"id"`
	LotteryType string      `yaml:"lottery_type"`
	FundPercent string      `yaml:"fund_percent"`
	Currency    string      `yaml:"currency"`
	Fixed       []FixedRule `yaml:"fixed"`
	Tail        *TailRule   `yaml:"tail"`
}

// FixedRule sets either Amount or Percent.
type FixedRule struct {
	Position int    `yaml:"position"`
	Amount   string `yaml:"amount"`
	Percent  string `yaml:"percent"`
}

type TailRule struct {
	AfterPosition   int    `yaml:"after_position"`
	StartPercent    string `yaml:"start_percent"`
	DecreaseStep    string `yaml:"decrease_step"`
	MinAmount       string `yaml:"min_amount"`
	BaseFundPercent string `yaml:"base_fund_percent"`
}

// HasRole reports whether the process runs role. No roles means all of them.
func (c *LotteryConfig) HasRole(role string) bool {
	if len(c.Roles) == 0 {
		return true
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func MustLoad() *LotteryConfig {
	// .env is optional
	_ = godotenv.Load()

	configPath := os.Getenv("LOTTERY_CONFIG_PATH")

	if configPath == "" {
		log.Fatalf("LOTTERY_CONFIG_PATH was not found\n")
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("failed to find config file: %v\n", err)
	}

	var cfg LotteryConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	return &cfg
}
