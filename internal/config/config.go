package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"cmdgate/internal/core"
)

// Config описывает параметры процесса шлюза.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Agent struct {
		LogLevel string `yaml:"log_level"`
	} `yaml:"agent"`
	Audit struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled         bool `yaml:"enabled"`
		IntervalSeconds int  `yaml:"interval_seconds"`
	} `yaml:"metrics"`
}

// Addr возвращает host:port для listen.
func (c Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// Endpoint описывает одну запись endpoints.yaml.
type Endpoint struct {
	Command     string          `yaml:"command"`
	Args        []string        `yaml:"args"`
	Description string          `yaml:"description"`
	Response    *ResponseConfig `yaml:"response"`
}

// ResponseConfig задает переопределения заголовков ответа.
type ResponseConfig struct {
	Headers HeaderList `yaml:"headers"`
}

// Endpoints — корень endpoints.yaml.
type Endpoints struct {
	Endpoints map[string]Endpoint `yaml:"endpoints"`
}

// HeaderList сохраняет порядок ключей YAML-отображения.
type HeaderList []core.Header

// UnmarshalYAML читает mapping-узел попарно, не теряя порядок.
func (h *HeaderList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: headers must be a mapping", value.Line)
	}
	out := make(HeaderList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var name, val string
		if err := value.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("line %d: header name: %w", value.Content[i].Line, err)
		}
		if err := value.Content[i+1].Decode(&val); err != nil {
			return fmt.Errorf("line %d: header %q: %w", value.Content[i+1].Line, name, err)
		}
		out = append(out, core.Header{Name: name, Value: val})
	}
	*h = out
	return nil
}

// Definitions переводит endpoints.yaml в определения реестра.
func (e Endpoints) Definitions() []core.EndpointDefinition {
	defs := make([]core.EndpointDefinition, 0, len(e.Endpoints))
	for name, ep := range e.Endpoints {
		def := core.EndpointDefinition{
			Name:        name,
			Command:     ep.Command,
			Args:        ep.Args,
			Description: ep.Description,
		}
		if ep.Response != nil {
			def.Headers = []core.Header(ep.Response.Headers)
		}
		defs = append(defs, def)
	}
	return defs
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	var cfg Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8080
	cfg.Agent.LogLevel = "info"
	cfg.Audit.Enabled = false
	cfg.Audit.Path = "/var/lib/cmdgate/audit.db"
	cfg.Audit.RetentionDays = 30
	cfg.Metrics.IntervalSeconds = 60
	return cfg
}

// Load читает config.yaml поверх значений по умолчанию.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := readFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEndpoints читает endpoints.yaml.
func LoadEndpoints(path string) (Endpoints, error) {
	var eps Endpoints
	data, err := readFile(path)
	if err != nil {
		return eps, err
	}
	if err := yaml.Unmarshal(data, &eps); err != nil {
		return eps, fmt.Errorf("parse %s: %w", path, err)
	}
	if eps.Endpoints == nil {
		eps.Endpoints = map[string]Endpoint{}
	}
	return eps, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- путь к конфигу задается доверенным оператором.
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("config file is empty: " + path)
	}
	return data, nil
}
