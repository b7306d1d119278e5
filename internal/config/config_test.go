package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg := Load()
	if cfg.ProviderTimeout != 10*time.Second {
		t.Errorf("provider timeout = %s", cfg.ProviderTimeout)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.NotificationMaxRetries != 5 {
		t.Errorf("notification retries = %d", cfg.NotificationMaxRetries)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name: "Given razorpay fully configured Then valid",
			env: map[string]string{
				"JWT_SECRET": "s", "RAZORPAY_KEY_ID": "k", "RAZORPAY_KEY_SECRET": "ks", "RAZORPAY_WEBHOOK_SECRET": "ws",
			},
		},
		{
			name:    "Given razorpay without webhook secret Then invalid",
			env:     map[string]string{"JWT_SECRET": "s", "RAZORPAY_KEY_ID": "k", "RAZORPAY_KEY_SECRET": "ks"},
			wantErr: "RAZORPAY_WEBHOOK_SECRET",
		},
		{
			name:    "Given no provider Then invalid",
			env:     map[string]string{"JWT_SECRET": "s"},
			wantErr: "no payment provider configured",
		},
		{
			name:    "Given no JWT secret Then invalid",
			env:     map[string]string{"STRIPE_SECRET_KEY": "sk", "STRIPE_WEBHOOK_SECRET": "whsec"},
			wantErr: "JWT_SECRET",
		},
	}
	keys := []string{"JWT_SECRET", "RAZORPAY_KEY_ID", "RAZORPAY_KEY_SECRET", "RAZORPAY_WEBHOOK_SECRET", "STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range keys {
				t.Setenv(k, tt.env[k])
			}
			err := Load().Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
