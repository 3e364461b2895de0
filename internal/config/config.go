package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	pkglogger "github.com/replyon/replyon-backend/pkg/logger"
)

// Duration yaml에서 "3m", "30s" 형태를 받기 위한 time.Duration 래퍼
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config 전체 애플리케이션 설정
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Vault      VaultConfig      `yaml:"vault"`
	AI         AIConfig         `yaml:"ai"`
	Agent      AgentConfig      `yaml:"agent"`
	Automation AutomationConfig `yaml:"automation"`
}

// ServerConfig HTTP 서버 설정
type ServerConfig struct {
	Port int    `yaml:"port"`
	Env  string `yaml:"env"`
}

// DatabaseConfig MySQL 연결 설정
type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Name            string `yaml:"name"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// GetDSN MySQL DSN 생성
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// RedisConfig Redis 연결 설정 (없으면 캐시 없이 동작)
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// VaultConfig 자격증명 암호화 설정
type VaultConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

// AIConfig 답글 생성 AI 엔드포인트 설정 (OpenAI 포맷)
type AIConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout Duration      `yaml:"timeout"`
}

// AgentConfig 브라우저 자동화 에이전트 설정
type AgentConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// AutomationConfig 리뷰 자동화 오케스트레이터 설정
type AutomationConfig struct {
	// 작업별 주기 — bootstrap(공격적) / steady(안정) 두 운영 자세
	BootstrapCollectInterval  Duration `yaml:"bootstrap_collect_interval"`
	BootstrapGenerateInterval Duration `yaml:"bootstrap_generate_interval"`
	BootstrapPostInterval     Duration `yaml:"bootstrap_post_interval"`
	SteadyCollectInterval     Duration `yaml:"steady_collect_interval"`
	SteadyGenerateInterval    Duration `yaml:"steady_generate_interval"`
	SteadyPostInterval        Duration `yaml:"steady_post_interval"`
	BootstrapSettleWait       Duration `yaml:"bootstrap_settle_wait"`

	// 외부 협력자 타임아웃
	CrawlTimeout Duration `yaml:"crawl_timeout"`
	PostTimeout  Duration `yaml:"post_timeout"`

	// 처리량 제한
	GenerationConcurrency int `yaml:"generation_concurrency"`
	NormalPostLimit       int `yaml:"normal_post_limit"`
	BossPostLimit         int `yaml:"boss_post_limit"`
	CollectFetchLimit     int `yaml:"collect_fetch_limit"`
}

// Load YAML 설정 파일 로드 후 환경변수로 덮어쓰기
func Load(path string) (*Config, error) {
	cfg := defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	fillDefaults(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: 8082, Env: "local"},
		Database: DatabaseConfig{
			Host:            "127.0.0.1",
			Port:            3306,
			User:            "replyon",
			Name:            "replyon",
			MaxIdleConns:    10,
			MaxOpenConns:    50,
			ConnMaxLifetime: 300,
		},
		Redis: RedisConfig{Host: "127.0.0.1", Port: 6379, PoolSize: 10},
		AI: AIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: Duration(90 * time.Second),
		},
		Agent: AgentConfig{BaseURL: "http://127.0.0.1:8090"},
		Automation: AutomationConfig{
			BootstrapCollectInterval:  Duration(3 * time.Minute),
			BootstrapGenerateInterval: Duration(30 * time.Second),
			BootstrapPostInterval:     Duration(2 * time.Minute),
			SteadyCollectInterval:     Duration(4 * time.Hour),
			SteadyGenerateInterval:    Duration(30 * time.Minute),
			SteadyPostInterval:        Duration(4 * time.Hour),
			BootstrapSettleWait:       Duration(10 * time.Second),
			CrawlTimeout:              Duration(3 * time.Minute),
			PostTimeout:               Duration(5 * time.Minute),
			GenerationConcurrency:     5,
			NormalPostLimit:           15,
			BossPostLimit:             5,
			CollectFetchLimit:         50,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setStr(&cfg.Server.Env, "APP_ENV")
	setInt(&cfg.Server.Port, "SERVER_PORT")

	setStr(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setStr(&cfg.Database.User, "DB_USER")
	setStr(&cfg.Database.Password, "DB_PASSWORD")
	setStr(&cfg.Database.Name, "DB_NAME")

	setStr(&cfg.Redis.Host, "REDIS_HOST")
	setInt(&cfg.Redis.Port, "REDIS_PORT")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")

	setStr(&cfg.Vault.EncryptionKey, "ENCRYPTION_KEY")

	setStr(&cfg.AI.BaseURL, "AI_BASE_URL")
	setStr(&cfg.AI.APIKey, "AI_API_KEY")
	setStr(&cfg.AI.Model, "AI_MODEL")

	setStr(&cfg.Agent.BaseURL, "AGENT_BASE_URL")
	setStr(&cfg.Agent.Token, "AGENT_TOKEN")
}

func fillDefaults(cfg *Config) {
	if cfg.Automation.GenerationConcurrency <= 0 {
		cfg.Automation.GenerationConcurrency = 5
	}
	if cfg.Automation.NormalPostLimit <= 0 {
		cfg.Automation.NormalPostLimit = 15
	}
	if cfg.Automation.BossPostLimit <= 0 {
		cfg.Automation.BossPostLimit = 5
	}
	if cfg.Automation.CollectFetchLimit <= 0 {
		cfg.Automation.CollectFetchLimit = 50
	}
}

// LogResolved 민감 값 제외한 최종 설정 출력
func LogResolved(cfg *Config) {
	pkglogger.Info("config: env=%s port=%d db=%s@%s:%d/%s redis=%s:%d ai_model=%s",
		cfg.Server.Env, cfg.Server.Port,
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name,
		cfg.Redis.Host, cfg.Redis.Port, cfg.AI.Model)
	pkglogger.Info("automation: gen_concurrency=%d normal_limit=%d boss_limit=%d",
		cfg.Automation.GenerationConcurrency, cfg.Automation.NormalPostLimit, cfg.Automation.BossPostLimit)
}
