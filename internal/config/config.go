package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConf struct {
	Env            string `mapstructure:"env"`
	Port           int    `mapstructure:"port"`
	ShutdownSecond int    `mapstructure:"shutdown_seconds"`
}

type MongoConf struct {
	URI              string `mapstructure:"uri"`
	Database         string `mapstructure:"database"`
	ImageCollection  string `mapstructure:"image_collection"`
	VideoCollection  string `mapstructure:"video_collection"`
	UserCollection   string `mapstructure:"user_collection"`
	ConnectTimeoutMs int    `mapstructure:"connect_timeout_ms"`
	MaxPoolSize      uint64 `mapstructure:"max_pool_size"`
}

// CDNConf holds the ImageKit-compatible account settings. PrivateKey never leaves the server.
type CDNConf struct {
	PublicKey         string `mapstructure:"public_key"`
	PrivateKey        string `mapstructure:"private_key"`
	URLEndpoint       string `mapstructure:"url_endpoint"`
	UploadEndpoint    string `mapstructure:"upload_endpoint"`
	UploadAuthTTL     int    `mapstructure:"upload_auth_ttl_seconds"`
	PlaybackURLExpiry int    `mapstructure:"playback_url_expiry_seconds"`
}

type RedisConf struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	SignedTTL int    `mapstructure:"signed_url_cache_ttl_seconds"`
}

type RateLimitConf struct {
	UploadAuthPerMinute int `mapstructure:"upload_auth_per_minute"`
}

type JWTConf struct {
	Secret     string `mapstructure:"secret"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

type AWSConf struct {
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
}

type ArchiveConf struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	App       AppConf       `mapstructure:"app"`
	Mongo     MongoConf     `mapstructure:"mongodb"`
	CDN       CDNConf       `mapstructure:"cdn"`
	Redis     RedisConf     `mapstructure:"redis"`
	RateLimit RateLimitConf `mapstructure:"rate_limit"`
	JWT       JWTConf       `mapstructure:"jwt"`
	AWS       AWSConf       `mapstructure:"aws"`
	Archive   ArchiveConf   `mapstructure:"archive"`
	Log       struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ShutdownTimeout   time.Duration
	ConnectTimeout    time.Duration
	UploadAuthTTL     time.Duration
	PlaybackURLExpiry time.Duration
	SignedURLCacheTTL time.Duration
	SessionTTL        time.Duration
}

// Load reads the YAML file at path (if it exists) and lets environment variables
// override any key, e.g. CDN_PRIVATE_KEY or MONGODB_URI.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
			return nil, err
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.derive()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 3000)
	v.SetDefault("app.shutdown_seconds", 15)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "clipsify")
	v.SetDefault("mongodb.image_collection", "images")
	v.SetDefault("mongodb.video_collection", "videos")
	v.SetDefault("mongodb.user_collection", "users")
	v.SetDefault("mongodb.connect_timeout_ms", 10000)
	v.SetDefault("mongodb.max_pool_size", 10)
	v.SetDefault("cdn.public_key", "")
	v.SetDefault("cdn.private_key", "")
	v.SetDefault("cdn.url_endpoint", "")
	v.SetDefault("cdn.upload_endpoint", "https://upload.imagekit.io/api/v1/files/upload")
	v.SetDefault("cdn.upload_auth_ttl_seconds", 3600)
	v.SetDefault("cdn.playback_url_expiry_seconds", 3600)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.signed_url_cache_ttl_seconds", 600)
	v.SetDefault("rate_limit.upload_auth_per_minute", 30)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl_minutes", 60*24)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.bucket", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("log.level", "info")
}

func (c *Config) derive() {
	if c.App.ShutdownSecond <= 0 {
		c.App.ShutdownSecond = 15
	}
	c.ShutdownTimeout = time.Duration(c.App.ShutdownSecond) * time.Second
	if c.Mongo.ConnectTimeoutMs <= 0 {
		c.Mongo.ConnectTimeoutMs = 10000
	}
	c.ConnectTimeout = time.Duration(c.Mongo.ConnectTimeoutMs) * time.Millisecond

	// upload credentials are never valid for more than an hour
	if c.CDN.UploadAuthTTL <= 0 || c.CDN.UploadAuthTTL > 3600 {
		c.CDN.UploadAuthTTL = 3600
	}
	c.UploadAuthTTL = time.Duration(c.CDN.UploadAuthTTL) * time.Second
	if c.CDN.PlaybackURLExpiry <= 0 {
		c.CDN.PlaybackURLExpiry = 3600
	}
	c.PlaybackURLExpiry = time.Duration(c.CDN.PlaybackURLExpiry) * time.Second

	// a cached playback URL must expire before its signature does
	if c.Redis.SignedTTL <= 0 || c.Redis.SignedTTL >= c.CDN.PlaybackURLExpiry {
		c.Redis.SignedTTL = c.CDN.PlaybackURLExpiry / 2
	}
	c.SignedURLCacheTTL = time.Duration(c.Redis.SignedTTL) * time.Second

	if c.JWT.TTLMinutes <= 0 {
		c.JWT.TTLMinutes = 60 * 24
	}
	c.SessionTTL = time.Duration(c.JWT.TTLMinutes) * time.Minute
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
