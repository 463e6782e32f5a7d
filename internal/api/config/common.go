package config

// Config 配置主体
type Config struct {
	Server             ServerConfig       `mapstructure:"server"`
	Log                LogConfig          `mapstructure:"log"`
	Store              StoreConfig        `mapstructure:"store"`
	Mongo              MongoConfig        `mapstructure:"mongo"`
	DB                 DBConfig           `mapstructure:"database"`
	Redis              RedisConfig        `mapstructure:"redis"`
	Elastic            ElasticConfig      `mapstructure:"elastic"`
	Kafka              KafkaConfig        `mapstructure:"kafka"`
	KafkaPurgeConsumer KafkaPurgeConsumer `mapstructure:"kafka_purge_consumer"`
	JWT                JWTConfig          `mapstructure:"jwt"`
	ServerDefaults     ServerDefaults     `mapstructure:"server_defaults"`
	Moderation         ModerationConfig   `mapstructure:"moderation"`
	Preview            PreviewConfig      `mapstructure:"preview"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// LogConfig 日志配置，RemoteAddr 为空时不开启远程日志
type LogConfig struct {
	Level      string `mapstructure:"level"`
	RemoteAddr string `mapstructure:"remote_addr"`
}

// StoreConfig 行存储引擎选择：memory | mongo | redis | mysql
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ElasticConfig Elastic配置，Address 为空时不启用消息搜索
type ElasticConfig struct {
	Address  string         `mapstructure:"address"`
	Username string         `mapstructure:"username"`
	Password string         `mapstructure:"password"`
	Indices  ElasticIndices `mapstructure:"indices"`
}

// ElasticIndices Elastic索引
type ElasticIndices struct {
	MessageIndex string `mapstructure:"message_index"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

// KafkaPurgeConsumer 用户内容清理指令消费者
type KafkaPurgeConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// ServerDefaults 服务器配置行首次创建时的初始值
type ServerDefaults struct {
	Name             string `mapstructure:"name"`
	MaxUploadBytes   int64  `mapstructure:"max_upload_bytes"`
	MaxMessageLength int    `mapstructure:"max_message_length"`
}

type ModerationConfig struct {
	PageSize   int    `mapstructure:"page_size"`
	DigestCron string `mapstructure:"digest_cron"`
}

// PreviewConfig 链接预览，CacheTTL 与 Timeout 单位为秒。
// AllowPrivateNetworks 为 false 时拒绝抓取回环、内网与链路本地地址
type PreviewConfig struct {
	CacheSize            int  `mapstructure:"cache_size"`
	CacheTTL             int  `mapstructure:"cache_ttl"`
	Timeout              int  `mapstructure:"timeout"`
	AllowPrivateNetworks bool `mapstructure:"allow_private_networks"`
}
