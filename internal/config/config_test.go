package config

import (
	"os"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	os.Clearenv()
	t.Setenv("ADMIN_TOKEN", "admin-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.Store != StorePostgres {
		t.Errorf("Store = %q, want %q", cfg.Store, StorePostgres)
	}
	if cfg.GrantIssuer != "creator-gate" {
		t.Errorf("GrantIssuer = %q, want %q", cfg.GrantIssuer, "creator-gate")
	}
	if cfg.GrantAudience != "creator-gallery" {
		t.Errorf("GrantAudience = %q, want %q", cfg.GrantAudience, "creator-gallery")
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.ValidateRatePerMinute != 20 || cfg.ValidateBurst != 10 {
		t.Errorf("rate = %d/%d, want 20/10", cfg.ValidateRatePerMinute, cfg.ValidateBurst)
	}
	if cfg.AccessEventsTopic != "creator-access-events" {
		t.Errorf("AccessEventsTopic = %q, want default", cfg.AccessEventsTopic)
	}
	if cfg.GrantTTL() != 24*time.Hour {
		t.Errorf("GrantTTL = %v, want 24h", cfg.GrantTTL())
	}
	if cfg.IsProduction() {
		t.Error("IsProduction should be false by default")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("GRANT_ISSUER", "custom-issuer")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("STORE", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9999")
	}
	if cfg.GrantIssuer != "custom-issuer" {
		t.Errorf("GrantIssuer = %q, want %q", cfg.GrantIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.Store != StoreMemory {
		t.Errorf("Store = %q, want %q", cfg.Store, StoreMemory)
	}
}

func TestLoad_AdminTokenRequired(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should fail without ADMIN_TOKEN")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 10, false}, // Should default to 10
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_InvalidStore(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE", "mongo")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject unknown STORE")
	}
}

func TestLoad_MemoryStoreRejectedInProduction(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE", "memory")
	t.Setenv("APP_ENV", "production")
	t.Setenv("GRANT_PRIVATE_KEY", "key.pem")
	t.Setenv("GRANT_PUBLIC_KEY", "key.pub")

	_, err := Load()
	if err == nil {
		t.Fatal("Load should fail with STORE=memory in production")
	}
	if err.Error() != "config: STORE=memory must not be used when APP_ENV=production" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLoad_ProductionRequiresGrantKeys(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail in production without grant keys")
	}

	t.Setenv("GRANT_PRIVATE_KEY", "key.pem")
	t.Setenv("GRANT_PUBLIC_KEY", "key.pub")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction should be true")
	}
}

func TestLoad_NegativeRateRejected(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("VALIDATE_BURST", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject negative burst")
	}
}

func TestGrantTTL(t *testing.T) {
	testCases := []struct {
		value string
		want  time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"48h", 48 * time.Hour},
		{"invalid", 24 * time.Hour},
		{"0", 24 * time.Hour},
		{"-5m", 24 * time.Hour},
	}
	for _, tc := range testCases {
		t.Run(tc.value, func(t *testing.T) {
			cfg := &Config{DefaultGrantTTL: tc.value}
			if got := cfg.GrantTTL(); got != tc.want {
				t.Errorf("GrantTTL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRequestTimeoutDuration(t *testing.T) {
	cfg := &Config{RequestTimeout: "3s"}
	if got := cfg.RequestTimeoutDuration(); got != 3*time.Second {
		t.Errorf("RequestTimeoutDuration = %v, want 3s", got)
	}
	cfg.RequestTimeout = ""
	if got := cfg.RequestTimeoutDuration(); got != 10*time.Second {
		t.Errorf("RequestTimeoutDuration = %v, want 10s default", got)
	}
}

func TestKafkaBrokersList(t *testing.T) {
	var nilCfg *Config
	if got := nilCfg.KafkaBrokersList(); got != nil {
		t.Errorf("nil config brokers = %v, want nil", got)
	}
	cfg := &Config{KafkaBrokers: " kafka-1:9092, ,kafka-2:9092 "}
	got := cfg.KafkaBrokersList()
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Errorf("KafkaBrokersList = %v", got)
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,192.0.2.50 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.TrustedProxiesList()
	if len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "192.0.2.50" {
		t.Errorf("TrustedProxiesList = %v", got)
	}

	t.Setenv("TRUSTED_PROXIES", "lb.internal")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject a non-address TRUSTED_PROXIES entry")
	}
}

func TestLoadWorker_IgnoresServerKeys(t *testing.T) {
	os.Clearenv()
	t.Setenv("KAFKA_BROKERS", "kafka:9092")
	t.Setenv("LOKI_URL", "http://loki:3100")

	cfg, err := LoadWorker()
	if err != nil {
		t.Fatalf("LoadWorker without ADMIN_TOKEN: %v", err)
	}
	if cfg.AccessEventsTopic != "creator-access-events" || cfg.KafkaGroupID != "creator-access-worker" {
		t.Errorf("topic/group = %q/%q, want defaults", cfg.AccessEventsTopic, cfg.KafkaGroupID)
	}
}

func TestLoadWorker_RequiresKafkaAndLoki(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"no brokers", map[string]string{"LOKI_URL": "http://loki:3100"}},
		{"blank brokers", map[string]string{"KAFKA_BROKERS": " , ", "LOKI_URL": "http://loki:3100"}},
		{"no loki", map[string]string{"KAFKA_BROKERS": "kafka:9092"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadWorker(); err == nil {
				t.Fatal("LoadWorker should fail")
			}
		})
	}
}
