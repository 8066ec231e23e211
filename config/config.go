package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type GameConfig struct {
	MaxPlayers     int `mapstructure:"max_players"`
	GraceSeconds   int `mapstructure:"grace_seconds"`
	TickIntervalMS int `mapstructure:"tick_interval_ms"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

// GracePeriod 返回断线宽限时长
func (g GameConfig) GracePeriod() time.Duration {
	return time.Duration(g.GraceSeconds) * time.Second
}

// TickInterval 返回 Tick 间隔
func (g GameConfig) TickInterval() time.Duration {
	return time.Duration(g.TickIntervalMS) * time.Millisecond
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9090")
	viper.SetDefault("game.max_players", 4)
	viper.SetDefault("game.grace_seconds", 30)
	viper.SetDefault("game.tick_interval_ms", 100)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
