package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yikakia/visitcounter/core/counter"
	"gopkg.in/yaml.v3"
)

const (
	RoutingModN       = "mod_n"
	RoutingRendezvous = "rendezvous"
)

// Config 服务配置，先读 YAML 文件，再用环境变量覆盖
type Config struct {
	// 节点地址，顺序决定路由，见 stores.Open
	BackingNodes []string `yaml:"backing_nodes"`

	LocalTTLSeconds        int `yaml:"local_ttl_seconds"`
	CleanupIntervalSeconds int `yaml:"cleanup_interval_seconds"`
	// 0 表示与 local_ttl_seconds 相同
	FlushIntervalSeconds int `yaml:"flush_interval_seconds"`
	StoreTimeoutMillis   int `yaml:"store_timeout_ms"`

	Routing           string `yaml:"routing"`
	WriteThrough      bool   `yaml:"write_through"`
	IncrementAttempts int    `yaml:"increment_attempts"`

	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		LocalTTLSeconds:        5,
		CleanupIntervalSeconds: 3,
		StoreTimeoutMillis:     2000,
		Routing:                RoutingModN,
		IncrementAttempts:      1,
		ListenAddr:             ":8000",
		MetricsAddr:            "",
		LogLevel:               "info",
	}
}

// Load 默认值 -> 配置文件（path 为空时跳过） -> 环境变量，最后校验
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ParseNodes 解析逗号分隔的节点列表，去掉空白和空项
func ParseNodes(list string) []string {
	var nodes []string
	for _, node := range strings.Split(list, ",") {
		node = strings.TrimSpace(node)
		if node != "" {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w: %w", counter.ErrConfiguration, err)
	}
	return nil
}

func (c *Config) LoadFromEnv() error {
	var errs []error

	// REDIS_NODES 为旧名字
	if val := os.Getenv("BACKING_NODES"); val != "" {
		c.BackingNodes = ParseNodes(val)
	} else if val := os.Getenv("REDIS_NODES"); val != "" {
		c.BackingNodes = ParseNodes(val)
	}

	intEnvs := []struct {
		name string
		dst  *int
	}{
		{"LOCAL_TTL_SECONDS", &c.LocalTTLSeconds},
		{"CLEANUP_INTERVAL_SECONDS", &c.CleanupIntervalSeconds},
		{"FLUSH_INTERVAL_SECONDS", &c.FlushIntervalSeconds},
		{"STORE_TIMEOUT_MS", &c.StoreTimeoutMillis},
		{"INCREMENT_ATTEMPTS", &c.IncrementAttempts},
	}
	for _, e := range intEnvs {
		val := os.Getenv(e.name)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			errs = append(errs, fmt.Errorf("env %s=%q is not an integer", e.name, val))
			continue
		}
		*e.dst = n
	}

	if val := os.Getenv("ROUTING"); val != "" {
		c.Routing = strings.ToLower(strings.TrimSpace(val))
	}
	if val := os.Getenv("WRITE_THROUGH"); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			errs = append(errs, fmt.Errorf("env WRITE_THROUGH=%q is not a boolean", val))
		} else {
			c.WriteThrough = b
		}
	}
	if val := os.Getenv("LISTEN_ADDR"); val != "" {
		c.ListenAddr = val
	}
	if val := os.Getenv("METRICS_ADDR"); val != "" {
		c.MetricsAddr = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", counter.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.BackingNodes) == 0 {
		errs = append(errs, errors.New("at least one backing node is required"))
	}
	if c.LocalTTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("local_ttl_seconds must > 0, but got %d", c.LocalTTLSeconds))
	}
	if c.CleanupIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("cleanup_interval_seconds must > 0, but got %d", c.CleanupIntervalSeconds))
	}
	if c.FlushIntervalSeconds < 0 {
		errs = append(errs, fmt.Errorf("flush_interval_seconds must >= 0, but got %d", c.FlushIntervalSeconds))
	}
	if c.StoreTimeoutMillis <= 0 {
		errs = append(errs, fmt.Errorf("store_timeout_ms must > 0, but got %d", c.StoreTimeoutMillis))
	}
	if c.IncrementAttempts < 1 {
		errs = append(errs, fmt.Errorf("increment_attempts must >= 1, but got %d", c.IncrementAttempts))
	}
	switch c.Routing {
	case RoutingModN, RoutingRendezvous:
	default:
		errs = append(errs, fmt.Errorf("unknown routing %q", c.Routing))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is empty"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", counter.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func (c *Config) TTL() time.Duration {
	return time.Duration(c.LocalTTLSeconds) * time.Second
}

func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

// FlushInterval 未配置时与 TTL 相同
func (c *Config) FlushInterval() time.Duration {
	if c.FlushIntervalSeconds == 0 {
		return c.TTL()
	}
	return time.Duration(c.FlushIntervalSeconds) * time.Second
}

func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMillis) * time.Millisecond
}
