package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Identity IdentityConfig `mapstructure:"identity"`
	Session  SessionConfig  `mapstructure:"session"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

type GatewayConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RedisConfig backs the local persistence adapter. KeyPrefix namespaces
// every key so several deployments can share one redis.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
	Channel   string `mapstructure:"channel"`
}

// RemoteConfig selects the optional remote store. An empty driver means
// local persistence only.
type RemoteConfig struct {
	Driver          string            `mapstructure:"driver"`
	Region          string            `mapstructure:"region"`
	Endpoint        string            `mapstructure:"endpoint"`
	AccessKeyID     string            `mapstructure:"access_key_id"`
	SecretAccessKey string            `mapstructure:"secret_access_key"`
	Tables          map[string]string `mapstructure:"tables"`
	ProbeTimeout    time.Duration     `mapstructure:"probe_timeout"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type IdentityConfig struct {
	Driver              string `mapstructure:"driver"`
	Region              string `mapstructure:"region"`
	UserPoolID          string `mapstructure:"user_pool_id"`
	ClientID            string `mapstructure:"client_id"`
	PlaceholderPassword string `mapstructure:"placeholder_password"`
}

type SessionConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	ResendCountdown time.Duration `mapstructure:"resend_countdown"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "bistro")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.grpc_port", 50061)

	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 8080)
	v.SetDefault("gateway.request_timeout", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.key_prefix", "bistro:")
	v.SetDefault("redis.channel", "bistro:storage")

	v.SetDefault("remote.driver", "")
	v.SetDefault("remote.region", "us-east-1")
	v.SetDefault("remote.tables", map[string]string{
		"menu-items": "menu-items",
		"orders":     "orders",
	})
	v.SetDefault("remote.probe_timeout", 5*time.Second)

	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.max_open_conns", 20)

	v.SetDefault("mongodb.database", "bistro")
	v.SetDefault("mongodb.collection", "audit_logs")

	v.SetDefault("identity.driver", "dev")
	v.SetDefault("identity.placeholder_password", "tempPassword123!")

	v.SetDefault("session.refresh_interval", 30*time.Minute)
	v.SetDefault("session.resend_countdown", 120*time.Second)

	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
}

// Load reads the YAML file at configPath, if any, on top of the defaults.
// Every key can be overridden from the environment, e.g. BISTRO_REDIS_ADDR.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("bistro")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// Table returns the configured table for a remote collection, falling back
// to the collection name itself.
func (c *RemoteConfig) Table(collection string) string {
	if t, ok := c.Tables[collection]; ok && t != "" {
		return t
	}
	return collection
}
