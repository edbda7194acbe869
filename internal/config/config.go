package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Map    MapConfig    `yaml:"map"`
	Rooms  []RoomDef    `yaml:"rooms"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Callback is the externally reachable base URL for this service. It is
	// advertised to the map as the websocket connection target, and may
	// differ from host:port when the service sits behind a proxy.
	Callback string `yaml:"callback"`
	// WSToken, when set, requires every websocket handshake to carry a
	// valid signature. Empty means handshakes are accepted unconditionally.
	WSToken string `yaml:"ws_token"`
}

type MapConfig struct {
	ServiceURL       string   `yaml:"service_url"`
	HealthURL        string   `yaml:"health_url"`
	Key              string   `yaml:"key"`
	SystemID         string   `yaml:"system_id"`
	RegisterInterval Duration `yaml:"register_interval"`
	CallTimeout      Duration `yaml:"call_timeout"`
}

// Duration lets intervals be written as "15s" or "2m" in the yaml file.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// envOverrides are the deployment-provided values. They are listed
// explicitly so that only these names can override the yaml file; the rest
// of the config never reads the environment.
type envOverrides struct {
	Callback   string `envconfig:"RECROOM_SERVICE_URL"`
	WSToken    string `envconfig:"WS_TOKEN"`
	ServiceURL string `envconfig:"MAP_SERVICE_URL"`
	HealthURL  string `envconfig:"MAP_HEALTH_SERVICE_URL"`
	Key        string `envconfig:"MAP_KEY"`
	SystemID   string `envconfig:"SYSTEM_ID"`
}

// RoomDef is the static definition of one hosted room. Doors are keyed by
// direction letter (n, s, e, w, u, d).
type RoomDef struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Doors       map[string]string `yaml:"doors"`
	Items       []ItemDef         `yaml:"items"`
}

type ItemDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Load reads the yaml config at path, applies environment overrides for
// deployment-provided values (MAP_KEY, SYSTEM_ID, service URLs, WS_TOKEN)
// and validates the room definitions.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 9080,
		},
		Map: MapConfig{
			RegisterInterval: Duration(15 * time.Second),
			CallTimeout:      Duration(5 * time.Second),
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}
	if env.Callback != "" {
		c.Server.Callback = env.Callback
	}
	if env.WSToken != "" {
		c.Server.WSToken = env.WSToken
	}
	if env.ServiceURL != "" {
		c.Map.ServiceURL = env.ServiceURL
	}
	if env.HealthURL != "" {
		c.Map.HealthURL = env.HealthURL
	}
	if env.Key != "" {
		c.Map.Key = env.Key
	}
	if env.SystemID != "" {
		c.Map.SystemID = env.SystemID
	}
	return nil
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Rooms))
	for _, r := range c.Rooms {
		if r.ID == "" {
			return fmt.Errorf("room definition with empty id")
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate room id %q", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}
