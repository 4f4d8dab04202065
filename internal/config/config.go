package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	LocalDB  DBConfig       `mapstructure:"local_db"`
	Cron     CronConfig     `mapstructure:"cron"`
	Metabase MetabaseConfig `mapstructure:"metabase"`
	FundsAPI FundsAPIConfig `mapstructure:"funds_api"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// CronConfig holds one cron spec per job. An empty spec leaves the job
// manual-only (HTTP trigger).
type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Positions   string `mapstructure:"positions"`
	Swaps       string `mapstructure:"swaps"`
	Margin      string `mapstructure:"margin"`
	PLSnapshot  string `mapstructure:"pl_snapshot"`
	PLHistory   string `mapstructure:"pl_history"`
	Replication string `mapstructure:"replication"`
}

type MetabaseConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// PublicCardPath is the public card query path with a {card_id}
	// placeholder, e.g. "/api/public/card/{card_id}/query/json".
	PublicCardPath string `mapstructure:"public_card_path"`

	Timeout            time.Duration `mapstructure:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

type FundsAPIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	PLEndpoint  string        `mapstructure:"pl_endpoint"`
	Cookie      string        `mapstructure:"cookie"`
	CryptoToken string        `mapstructure:"crypto_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// JobsConfig carries the dashboard card ids and the pacing delay shared by
// the fetch loops.
type JobsConfig struct {
	RequestDelay time.Duration `mapstructure:"request_delay"`

	OTCCard       int `mapstructure:"otc_card"`
	SwapCard      int `mapstructure:"swap_card"`
	OffshoreCard  int `mapstructure:"offshore_card"`
	PositionsCard int `mapstructure:"positions_card"`
	MarginCard    int `mapstructure:"margin_card"`
	PLHistoryCard int `mapstructure:"pl_history_card"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("local_db.max_open_conns", 5)
	v.SetDefault("local_db.max_idle_conns", 2)
	v.SetDefault("local_db.conn_max_lifetime", "30m")
	v.SetDefault("local_db.conn_max_idle_time", "5m")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.positions", "")
	v.SetDefault("cron.swaps", "")
	v.SetDefault("cron.margin", "")
	v.SetDefault("cron.pl_snapshot", "")
	v.SetDefault("cron.pl_history", "")
	v.SetDefault("cron.replication", "")
	v.SetDefault("metabase.public_card_path", "/api/public/card/{card_id}/query/json")
	v.SetDefault("metabase.timeout", "5m")
	v.SetDefault("metabase.insecure_skip_verify", false)
	v.SetDefault("funds_api.timeout", "5m")
	v.SetDefault("jobs.request_delay", "500ms")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
