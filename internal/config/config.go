package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// EthereumConfig holds the RPC connection and custody operator settings for
// the ERC-20 adapter
type EthereumConfig struct {
	RPCURL      string `mapstructure:"rpc_url"`
	ChainID     int64  `mapstructure:"chain_id"`
	OperatorKey string `mapstructure:"operator_key"`
}

// EditionConfig holds the edition's creation-time parameters. These seed the
// database on first start; later starts read state from the database, so
// changing them does not rewrite a live ledger.
type EditionConfig struct {
	TotalSupply    uint64   `mapstructure:"total_supply"`
	InitialPrice   uint64   `mapstructure:"initial_price"`
	PriceIncrement uint64   `mapstructure:"price_increment"`
	MaxSaleIndex   uint64   `mapstructure:"max_sale_index"`
	StageFee       uint64   `mapstructure:"stage_fee"`
	ArtistShareBps uint64   `mapstructure:"artist_share_bps"`
	AllowStageSkip bool     `mapstructure:"allow_stage_skip"`
	BaseURI        string   `mapstructure:"base_uri"`
	Owner          string   `mapstructure:"owner"`
	Admin          string   `mapstructure:"admin"`
	Artist         string   `mapstructure:"artist"`
	Developer      string   `mapstructure:"developer"`
	Custody        string   `mapstructure:"custody"`
	Stables        []string `mapstructure:"stables"`
}

// APIConfig holds configuration for the custody ledger API service
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	Server     ServerConfig   `mapstructure:"server"`
	Auth       AuthConfig     `mapstructure:"auth"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Ethereum   EthereumConfig `mapstructure:"ethereum"`
	Edition    EditionConfig  `mapstructure:"edition"`
	// StableMode selects the fungible adapter: "erc20" (default) or
	// "memory" for local development without a chain
	StableMode string `mapstructure:"stable_mode"`
}

// LoadAPIConfig loads configuration for the API service
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("server.idle_timeout", 60)
	v.SetDefault("nats.stream_name", "LEDGER_EVENTS")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", "custody-ledger-api")
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("stable_mode", "erc20")
	// Edition defaults match the deployed collection: 30 pieces, the first
	// five on sale, price ladder in whole stablecoin units
	v.SetDefault("edition.total_supply", 30)
	v.SetDefault("edition.initial_price", 1000)
	v.SetDefault("edition.price_increment", 100)
	v.SetDefault("edition.max_sale_index", 5)
	v.SetDefault("edition.stage_fee", 100)
	v.SetDefault("edition.artist_share_bps", 5000)
	v.SetDefault("edition.allow_stage_skip", false)
	v.SetDefault("edition.base_uri", "https://s.nft.mirrah.art/one/metadata")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// configureViper builds a viper instance with env file loading and env
// variable binding
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("CUSTODY_LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds config keys so AutomaticEnv picks them up
// even without a config file
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"stable_mode",
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"auth.jwt_public_key",
		"auth.api_keys",
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.operator_key",
		"edition.total_supply",
		"edition.initial_price",
		"edition.price_increment",
		"edition.max_sale_index",
		"edition.stage_fee",
		"edition.artist_share_bps",
		"edition.allow_stage_skip",
		"edition.base_uri",
		"edition.owner",
		"edition.admin",
		"edition.artist",
		"edition.developer",
		"edition.custody",
		"edition.stables",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads .env files from the given path, later files overriding
// earlier ones
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate)
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}
