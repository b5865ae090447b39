package config

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"empty", "", ""},
		{"short fully masked", "abc123", maskedValue},
		{"eight chars fully masked", "12345678", maskedValue},
		{"long shows edges", "my_long_secret_key_123", "my<" + maskedValue + ">23"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.secret); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestMarshalJSON_MasksSecrets(t *testing.T) {
	cfg := Config{
		PostgresPassword: "super_secret_password",
		AdminToken:       "admin_token_value_9",
		NotionToken:      "ntn_abcdefghijklmnop",
		CMSToken:         "cms_token_value_77",
		EmbedderModel:    DefaultEmbedderModel,
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	out := string(data)

	for _, secret := range []string{
		"super_secret_password",
		"admin_token_value_9",
		"ntn_abcdefghijklmnop",
		"cms_token_value_77",
	} {
		if strings.Contains(out, secret) {
			t.Errorf("secret %q leaked in JSON output", secret)
		}
	}
	if !strings.Contains(out, DefaultEmbedderModel) {
		t.Error("non-sensitive fields should survive marshaling")
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := Config{PostgresPassword: "do_not_print_me_ever"}

	if strings.Contains(cfg.String(), "do_not_print_me_ever") {
		t.Error("String() leaked the password")
	}
}
