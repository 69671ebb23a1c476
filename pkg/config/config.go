package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ncov-dump/internal/ncov_dump/model"
)

var ErrInvalidConfig = errors.New("invalid config")

// 可由环境变量覆盖的敏感配置
const (
	EnvMongoPassword = "MONGO_PASSWORD"
	EnvGitToken      = "GIT_TOKEN"
)

type MongoConfig struct {
	Host       string `yaml:"host"`
	DBName     string `yaml:"dbname"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	AuthSource string `yaml:"authSource"`
}

type UpstreamConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	MaxAttempts   int           `yaml:"max_attempts"` // 0 表示无限重试
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type GitConfig struct {
	Dir         string `yaml:"dir"` // 为空时使用输出目录
	Remote      string `yaml:"remote"`
	Push        *bool  `yaml:"push"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
	Username    string `yaml:"username"`
	Token       string `yaml:"token"`
}

type GCSConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type PublishConfig struct {
	Kind string    `yaml:"kind"` // git / gcs / none
	Git  GitConfig `yaml:"git"`
	GCS  GCSConfig `yaml:"gcs"`
}

type HTTPConfig struct {
	Address string `yaml:"address"` // 为空时不启动状态接口
}

type LogConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
}

type Config struct {
	Mongo       MongoConfig        `yaml:"mongo"`
	Upstream    UpstreamConfig     `yaml:"upstream"`
	Output      OutputConfig       `yaml:"output"`
	Schedule    ScheduleConfig     `yaml:"schedule"`
	Publish     PublishConfig      `yaml:"publish"`
	HTTP        HTTPConfig         `yaml:"http"`
	Log         LogConfig          `yaml:"log"`
	Timezone    string             `yaml:"timezone"`
	Collections []model.Collection `yaml:"collections"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse 解析 YAML，补全默认值，应用环境变量覆盖后校验
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mongo.Host == "" {
		c.Mongo.Host = "localhost:27017"
	}
	if c.Mongo.DBName == "" {
		c.Mongo.DBName = "2019-nCoV"
	}
	if c.Mongo.AuthSource == "" {
		c.Mongo.AuthSource = "admin"
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = "https://lab.isaaclin.cn/nCoV/api/"
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 30 * time.Second
	}
	if c.Upstream.RetryInterval == 0 {
		c.Upstream.RetryInterval = time.Second
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Schedule.Interval == 0 {
		c.Schedule.Interval = time.Hour
	}
	if c.Publish.Kind == "" {
		c.Publish.Kind = "none"
	}
	if c.Publish.Git.Remote == "" {
		c.Publish.Git.Remote = "origin"
	}
	if c.Publish.Git.Push == nil {
		push := true
		c.Publish.Git.Push = &push
	}
	if c.Publish.Git.AuthorName == "" {
		c.Publish.Git.AuthorName = "ncov-dump"
	}
	if c.Publish.Git.AuthorEmail == "" {
		c.Publish.Git.AuthorEmail = "ncov-dump@localhost"
	}
	// 默认按进程本地时区输出时间
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if len(c.Collections) == 0 {
		c.Collections = model.DefaultCollections()
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvMongoPassword); ok && v != "" {
		c.Mongo.Password = v
	}
	if v, ok := lookup(EnvGitToken); ok && v != "" {
		c.Publish.Git.Token = v
	}
}

func (c *Config) Validate() error {
	if c.Upstream.Timeout < 0 || c.Upstream.RetryInterval < 0 {
		return fmt.Errorf("%w: upstream durations must not be negative", ErrInvalidConfig)
	}
	if c.Upstream.MaxAttempts < 0 {
		return fmt.Errorf("%w: upstream.max_attempts must be >= 0", ErrInvalidConfig)
	}
	if c.Schedule.Interval < 0 {
		return fmt.Errorf("%w: schedule.interval must not be negative", ErrInvalidConfig)
	}
	switch c.Publish.Kind {
	case "git", "none":
	case "gcs":
		if c.Publish.GCS.Bucket == "" {
			return fmt.Errorf("%w: publish.gcs.bucket is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown publish.kind %q", ErrInvalidConfig, c.Publish.Kind)
	}
	seen := make(map[string]bool, len(c.Collections))
	for _, col := range c.Collections {
		if col.Name == "" || col.Endpoint == "" {
			return fmt.Errorf("%w: collection needs name and endpoint", ErrInvalidConfig)
		}
		if seen[col.Name] {
			return fmt.Errorf("%w: duplicate collection %q", ErrInvalidConfig, col.Name)
		}
		seen[col.Name] = true
	}
	return nil
}
