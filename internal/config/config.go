package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql atau postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	Latex struct {
		CompileURL   string `yaml:"compileURL"`
		TemplatePath string `yaml:"templatePath"`
	} `yaml:"latex"`

	Queue struct {
		Workers        int `yaml:"workers"`
		MaxAttempts    int `yaml:"maxAttempts"`
		BackoffSeconds int `yaml:"backoffSeconds"`
	} `yaml:"queue"`

	Auth struct {
		APIKeys []string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int     `yaml:"capacity"`
		RefillRate float64 `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Log struct {
		JSON  bool `yaml:"json"`
		Debug bool `yaml:"debug"`
	} `yaml:"log"`
}

// Load baca file config.yaml, CONFIG_PATH env override path kalau ada.
func Load(path string) (*Config, error) {
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		path = env
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Latex.CompileURL == "" {
		c.Latex.CompileURL = "https://latexonline.cc/compile"
	}
	if c.Latex.TemplatePath == "" {
		c.Latex.TemplatePath = "templates/resume.tex"
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 4
	}
	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = 3
	}
	if c.Queue.BackoffSeconds <= 0 {
		c.Queue.BackoffSeconds = 5
	}
	if c.RateLimit.Capacity <= 0 {
		c.RateLimit.Capacity = 30
	}
	if c.RateLimit.RefillRate <= 0 {
		c.RateLimit.RefillRate = 10
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
