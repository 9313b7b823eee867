package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string            `yaml:"env" env:"ENV" env-default:"local"`
	DSN         string            `yaml:"dsn" env:"DSN" env-required:"true"`
	HTTP        HTTPConfig        `yaml:"http"`
	FileStorage FileStorageConfig `yaml:"file_storage"`
	Redis       RedisConf         `yaml:"redis"`
	Cache       CacheConfig       `yaml:"cache"`
	Blog        BlogConfig        `yaml:"blog"`
	Identity    IdentityConfig    `yaml:"identity"`
}

type HTTPConfig struct {
	Host      string `yaml:"host" env:"HTTP_HOST"`
	Port      string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BodyLimit string `yaml:"body_limit" env-default:"12M"`
}

type FileStorageConfig struct {
	BaseDir string `yaml:"base_dir" env-default:"./media"`
	BaseURL string `yaml:"base_url" env-default:"/media"`
	MaxSize int64  `yaml:"max_size" env-default:"10485760"`
}

// RedisConf is optional; an empty address keeps the category cache local.
type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env-default:"0"`
	Prefix        string `yaml:"prefix" env-default:"blogcore"`
}

type CacheConfig struct {
	// A negative CategoryTTL disables category caching.
	CategoryTTL time.Duration `yaml:"category_ttl" env-default:"5m"`
}

type BlogConfig struct {
	DateFormat   string `yaml:"date_format" env-default:"%d-%m-%Y"`
	PageSize     int    `yaml:"page_size" env-default:"10"`
	ExcerptWords int    `yaml:"excerpt_words" env-default:"10"`
	Scheme       string `yaml:"scheme" env-default:"http"`
	SiteDomain   string `yaml:"site_domain" env:"SITE_DOMAIN" env-default:"localhost:8080"`
	BasePath     string `yaml:"base_path" env-default:"blog"`
}

type IdentityConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
