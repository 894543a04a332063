package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Networks accepted by the public API. Anything else is rejected before any
// outbound call is made.
const (
	NetworkMainnet = "mainnet"
	NetworkDevnet  = "devnet"
	NetworkTestnet = "testnet"

	DefaultNetwork = NetworkMainnet
)

var SupportedNetworks = []string{NetworkMainnet, NetworkDevnet, NetworkTestnet}

type Config struct {
	Server    ServerConfig             `json:"server"`
	Networks  map[string]NetworkConfig `json:"networks"`
	PRPC      PRPCConfig               `json:"prpc"`
	RPC       RPCConfig                `json:"rpc"`
	Credits   CreditsConfig            `json:"credits"`
	Geo       GeoConfig                `json:"geo"`
	Redis     RedisConfig              `json:"redis"`
	Price     PriceConfig              `json:"price"`
	RateLimit RateLimitConfig          `json:"rate_limit"`
	Log       LogConfig                `json:"log"`
}

type ServerConfig struct {
	Port           int      `json:"port"`
	Host           string   `json:"host"`
	AllowedOrigins []string `json:"allowed_origins"`
	RequestTimeout int      `json:"request_timeout_seconds"`
}

// NetworkConfig is the fixed endpoint set for one network.
type NetworkConfig struct {
	CreditsURL string   `json:"credits_url"`
	RPCURL     string   `json:"rpc_url"`
	PRPCHosts  []string `json:"prpc_hosts"` // tried in order
}

type PRPCConfig struct {
	DefaultPort int `json:"default_port"`
	TimeoutMS   int `json:"timeout_ms"`
	MinPods     int `json:"min_pods"` // a response must carry more than this many pods
}

type RPCConfig struct {
	TimeoutMS int `json:"timeout_ms"`
}

type CreditsConfig struct {
	TimeoutMS int `json:"timeout_ms"`
}

type GeoConfig struct {
	APIURL      string `json:"api_url"`
	DBPath      string `json:"db_path"`
	MaxLookups  int    `json:"max_lookups_per_request"`
	TimeoutMS   int    `json:"timeout_ms"`
	Concurrency int    `json:"concurrency"`
	CacheSize   int    `json:"cache_size"`
	CacheTTL    int    `json:"cache_ttl_seconds"` // 0 = never expire
}

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Enabled  bool   `json:"enabled"`
	UseTLS   bool   `json:"use_tls"`
}

type PriceConfig struct {
	URL       string `json:"url"`
	TimeoutMS int    `json:"timeout_ms"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute"`
}

type LogConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

var defaultPRPCHosts = []string{
	"173.212.203.145",
	"173.212.220.65",
	"161.97.97.41",
	"192.190.136.36",
	"192.190.136.38",
	"207.244.255.1",
	"192.190.136.28",
	"192.190.136.29",
	"173.212.207.32",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
			RequestTimeout: 30,
		},
		Networks: map[string]NetworkConfig{
			NetworkMainnet: {
				CreditsURL: "https://podcredits.xandeum.network/api/mainnet-pod-credits",
				RPCURL:     "https://api.mainnet.xandeum.com:8899",
				PRPCHosts:  append([]string(nil), defaultPRPCHosts...),
			},
			NetworkDevnet: {
				CreditsURL: "https://podcredits.xandeum.network/api/pods-credits",
				RPCURL:     "https://api.devnet.xandeum.com:8899",
				PRPCHosts:  append([]string(nil), defaultPRPCHosts...),
			},
			NetworkTestnet: {
				CreditsURL: "https://podcredits.xandeum.network/api/testnet-pod-credits",
				RPCURL:     "https://api.testnet.xandeum.com:8899",
				PRPCHosts:  append([]string(nil), defaultPRPCHosts...),
			},
		},
		PRPC: PRPCConfig{
			DefaultPort: 6000,
			TimeoutMS:   5000,
			MinPods:     10,
		},
		RPC: RPCConfig{
			TimeoutMS: 5000,
		},
		Credits: CreditsConfig{
			TimeoutMS: 10000,
		},
		Geo: GeoConfig{
			APIURL:      "http://ip-api.com",
			DBPath:      "",
			MaxLookups:  40, // ip-api.com free tier allows 45 req/min
			TimeoutMS:   3000,
			Concurrency: 0, // 0 = issue the whole capped batch at once
			CacheSize:   10000,
			CacheTTL:    0,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			Enabled: false,
		},
		Price: PriceConfig{
			URL:       "https://api.coingecko.com/api/v3/simple/price?ids=xandeum&vs_currencies=usd&include_24hr_change=true",
			TimeoutMS: 5000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config/config.json"
	}

	return Load(configPath, os.Args[1:])
}

// Load builds a Config from defaults, the JSON file at path (if present),
// the environment and finally command-line args.
func Load(path string, args []string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			file, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("open config file: %w", err)
			}
			defer file.Close()
			if err := json.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("decode config file %s: %w", path, err)
			}
		}
	}

	loadEnv(cfg)

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	var serverPort int
	var serverHost string

	fs.IntVar(&serverPort, "port", 0, "Server port")
	fs.StringVar(&serverHost, "host", "", "Server host")

	_ = fs.Parse(args)

	if isFlagPassed(fs, "port") {
		cfg.Server.Port = serverPort
	}
	if isFlagPassed(fs, "host") {
		cfg.Server.Host = serverHost
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isFlagPassed(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func loadEnv(cfg *Config) {
	// Server configuration
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = p
		}
	}
	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		cfg.Server.AllowedOrigins = splitList(val)
	}

	// Per-network endpoints: MAINNET_CREDITS_URL, DEVNET_PRPC_HOSTS, ...
	for _, network := range SupportedNetworks {
		prefix := strings.ToUpper(network) + "_"
		nc := cfg.Networks[network]
		changed := false
		if val := os.Getenv(prefix + "CREDITS_URL"); val != "" {
			nc.CreditsURL = val
			changed = true
		}
		if val := os.Getenv(prefix + "RPC_URL"); val != "" {
			nc.RPCURL = val
			changed = true
		}
		if val := os.Getenv(prefix + "PRPC_HOSTS"); val != "" {
			nc.PRPCHosts = splitList(val)
			changed = true
		}
		if changed {
			if cfg.Networks == nil {
				cfg.Networks = make(map[string]NetworkConfig)
			}
			cfg.Networks[network] = nc
		}
	}

	setInt("PRPC_PORT", &cfg.PRPC.DefaultPort)
	setInt("PRPC_TIMEOUT_MS", &cfg.PRPC.TimeoutMS)
	setInt("PRPC_MIN_PODS", &cfg.PRPC.MinPods)
	setInt("RPC_TIMEOUT_MS", &cfg.RPC.TimeoutMS)
	setInt("CREDITS_TIMEOUT_MS", &cfg.Credits.TimeoutMS)

	// Geolocation
	if val := os.Getenv("GEO_API_URL"); val != "" {
		cfg.Geo.APIURL = strings.TrimRight(val, "/")
	}
	if val := os.Getenv("GEOIP_DB_PATH"); val != "" {
		cfg.Geo.DBPath = val
	}
	setInt("GEO_MAX_LOOKUPS", &cfg.Geo.MaxLookups)
	setInt("GEO_TIMEOUT_MS", &cfg.Geo.TimeoutMS)
	setInt("GEO_CONCURRENCY", &cfg.Geo.Concurrency)
	setInt("GEO_CACHE_SIZE", &cfg.Geo.CacheSize)
	setInt("GEO_CACHE_TTL", &cfg.Geo.CacheTTL)

	// Redis
	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	setInt("REDIS_DB", &cfg.Redis.DB)
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		cfg.Redis.Enabled = val == "true" || val == "1"
	}
	if val := os.Getenv("REDIS_USE_TLS"); val != "" {
		cfg.Redis.UseTLS = val == "true" || val == "1"
	}

	if val := os.Getenv("PRICE_URL"); val != "" {
		cfg.Price.URL = val
	}
	setInt("RATE_LIMIT_PER_MINUTE", &cfg.RateLimit.RequestsPerMinute)

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := os.Getenv("LOG_FILE"); val != "" {
		cfg.Log.File = val
	}
}

func setInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			*dst = p
		}
	}
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that every configured network is supported and that the
// limits used by the aggregator are usable.
func (c *Config) Validate() error {
	for name, nc := range c.Networks {
		if !IsSupportedNetwork(name) {
			return fmt.Errorf("config: unsupported network %q", name)
		}
		if nc.CreditsURL == "" {
			return fmt.Errorf("config: network %q has no credits_url", name)
		}
	}
	if c.PRPC.TimeoutMS <= 0 || c.RPC.TimeoutMS <= 0 || c.Credits.TimeoutMS <= 0 || c.Geo.TimeoutMS <= 0 {
		return fmt.Errorf("config: upstream timeouts must be positive")
	}
	if c.PRPC.MinPods < 0 {
		return fmt.Errorf("config: prpc.min_pods must not be negative")
	}
	if c.Geo.MaxLookups < 0 {
		return fmt.Errorf("config: geo.max_lookups_per_request must not be negative")
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("config: rate_limit.requests_per_minute must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("config: server.request_timeout_seconds must be positive")
	}
	if c.Geo.CacheSize <= 0 {
		return fmt.Errorf("config: geo.cache_size must be positive")
	}
	return nil
}

// IsSupportedNetwork reports whether name is on the network allow-list.
func IsSupportedNetwork(name string) bool {
	for _, n := range SupportedNetworks {
		if n == name {
			return true
		}
	}
	return false
}

// Helper methods for duration conversion
func (c *Config) PRPCTimeoutDuration() time.Duration {
	return time.Duration(c.PRPC.TimeoutMS) * time.Millisecond
}

func (c *Config) RPCTimeoutDuration() time.Duration {
	return time.Duration(c.RPC.TimeoutMS) * time.Millisecond
}

func (c *Config) CreditsTimeoutDuration() time.Duration {
	return time.Duration(c.Credits.TimeoutMS) * time.Millisecond
}

func (c *Config) GeoTimeoutDuration() time.Duration {
	return time.Duration(c.Geo.TimeoutMS) * time.Millisecond
}

func (c *Config) GeoCacheTTLDuration() time.Duration {
	return time.Duration(c.Geo.CacheTTL) * time.Second
}

func (c *Config) PriceTimeoutDuration() time.Duration {
	return time.Duration(c.Price.TimeoutMS) * time.Millisecond
}

func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}
