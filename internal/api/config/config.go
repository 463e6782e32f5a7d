package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg，环境变量 PARLEY_XXX_YYY 覆盖 xxx.yyy
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")

	viper.SetEnvPrefix("PARLEY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("store.driver", "memory")
	viper.SetDefault("redis.key_prefix", "parley")
	viper.SetDefault("elastic.indices.message_index", "parley_messages")
	viper.SetDefault("kafka.consumer.session_timeout", 10)
	viper.SetDefault("kafka.consumer.heartbeat_interval", 3)
	viper.SetDefault("kafka.consumer.rebalance_timeout", 60)
	viper.SetDefault("kafka_purge_consumer.topic", "parley.user.purge")
	viper.SetDefault("kafka_purge_consumer.group_id", "parley-purge")
	viper.SetDefault("jwt.expire_hours", 72)
	viper.SetDefault("server_defaults.name", "Parley")
	viper.SetDefault("server_defaults.max_upload_bytes", 8<<20)
	viper.SetDefault("server_defaults.max_message_length", 4000)
	viper.SetDefault("moderation.page_size", 1000)
	viper.SetDefault("moderation.digest_cron", "0 */10 * * * *")
	viper.SetDefault("preview.cache_size", 512)
	viper.SetDefault("preview.cache_ttl", 600)
	viper.SetDefault("preview.timeout", 5)
	viper.SetDefault("preview.allow_private_networks", false)
}
