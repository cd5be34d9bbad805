package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Scheduling.CooldownMonths != DefaultCooldownMonths {
		t.Fatalf("cooldown = %d, want %d", cfg.Scheduling.CooldownMonths, DefaultCooldownMonths)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Notifications.Kafka.Enabled {
		t.Fatalf("kafka should be disabled by default")
	}
}

func TestFromYAMLKeepsDefaultCooldown(t *testing.T) {
	cfg, err := FromYAML([]byte("notifications:\n  webhooks: []\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Scheduling.CooldownMonths != DefaultCooldownMonths {
		t.Fatalf("cooldown = %d", cfg.Scheduling.CooldownMonths)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"negative cooldown": "scheduling:\n  cooldown_months: -1\n",
		"webhook url":       "notifications:\n  webhooks:\n    - secret: x\n",
		"kafka brokers":     "notifications:\n  kafka:\n    enabled: true\n    topic: t\n",
		"kafka topic":       "notifications:\n  kafka:\n    enabled: true\n    brokers: [localhost:9092]\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg.Scheduling.CooldownMonths != DefaultCooldownMonths {
		t.Fatalf("expected defaults when file missing")
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected Load to fail without file")
	}

	doc := "scheduling:\n  cooldown_months: 3\nnotifications:\n  webhooks:\n    - url: http://localhost/hook\n      events: [schedule.generate]\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scheduling.CooldownMonths != 3 {
		t.Fatalf("cooldown = %d", cfg.Scheduling.CooldownMonths)
	}
	if len(cfg.Notifications.Webhooks) != 1 || cfg.Notifications.Webhooks[0].Events[0] != "schedule.generate" {
		t.Fatalf("unexpected webhooks: %+v", cfg.Notifications.Webhooks)
	}
}
