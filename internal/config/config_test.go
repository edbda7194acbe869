package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "rooms:\n  - id: RecRoom\n    name: Rec Room\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 9080 {
		t.Errorf("port = %d, want 9080", cfg.Server.Port)
	}
	if cfg.Map.RegisterInterval.Std() != 15*time.Second {
		t.Errorf("register interval = %v, want 15s", cfg.Map.RegisterInterval)
	}
	if cfg.Map.CallTimeout.Std() != 5*time.Second {
		t.Errorf("call timeout = %v, want 5s", cfg.Map.CallTimeout)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9999
  callback: ws://rooms.example.org
  ws_token: shhh
map:
  service_url: https://map.example.org/v1/sites
  health_url: https://map.example.org/v1/health
  system_id: sys-1
  key: sekrit
  register_interval: 30s
rooms:
  - id: RecRoom
    name: Rec Room
    description: A comfy room.
    doors:
      n: A north door.
      s: A south door.
    items:
      - name: Mug
        description: A chipped mug.
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Callback != "ws://rooms.example.org" {
		t.Errorf("callback = %q", cfg.Server.Callback)
	}
	if cfg.Map.RegisterInterval.Std() != 30*time.Second {
		t.Errorf("register interval = %v, want 30s", cfg.Map.RegisterInterval)
	}
	if len(cfg.Rooms) != 1 {
		t.Fatalf("rooms = %d, want 1", len(cfg.Rooms))
	}
	room := cfg.Rooms[0]
	if room.Doors["n"] != "A north door." {
		t.Errorf("north door = %q", room.Doors["n"])
	}
	if len(room.Items) != 1 || room.Items[0].Name != "Mug" {
		t.Errorf("items = %+v", room.Items)
	}
}

func TestEnvOverridesWin(t *testing.T) {
	path := writeConfig(t, `
map:
  key: from-yaml
  system_id: yaml-sys
rooms:
  - id: RecRoom
`)
	t.Setenv("MAP_KEY", "from-env")
	t.Setenv("SYSTEM_ID", "env-sys")
	t.Setenv("RECROOM_SERVICE_URL", "ws://env.example.org")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Map.Key != "from-env" {
		t.Errorf("key = %q, want from-env", cfg.Map.Key)
	}
	if cfg.Map.SystemID != "env-sys" {
		t.Errorf("system id = %q, want env-sys", cfg.Map.SystemID)
	}
	if cfg.Server.Callback != "ws://env.example.org" {
		t.Errorf("callback = %q, want ws://env.example.org", cfg.Server.Callback)
	}
}

func TestLoadRejectsBadRooms(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "EmptyID",
			content: "rooms:\n  - name: No ID\n",
		},
		{
			name:    "DuplicateID",
			content: "rooms:\n  - id: RecRoom\n  - id: RecRoom\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected Load to fail")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected Load to fail for missing file")
	}
}
