package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return cfg
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := loadDefaults(t)

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config should validate cleanly, got: %v", ValidationErrors(errs))
	}
}

func TestDefaults_RoleChains(t *testing.T) {
	cfg := loadDefaults(t)

	if len(cfg.Roles.Strategist.Chain) == 0 {
		t.Fatal("strategist chain should have a default")
	}
	if cfg.Roles.Strategist.Chain[0] != "anthropic" {
		t.Errorf("strategist chain head = %q, want anthropic", cfg.Roles.Strategist.Chain[0])
	}
	if cfg.Roles.Planner.Timeout != 180*time.Second {
		t.Errorf("planner timeout = %v, want 180s", cfg.Roles.Planner.Timeout)
	}
	if cfg.Roles.Research.Timeout >= cfg.Roles.Planner.Timeout {
		t.Error("research calls should be bounded tighter than planner calls")
	}
}

func TestDefaults_LockDurations(t *testing.T) {
	cfg := loadDefaults(t)

	if cfg.Lock.TTL <= 0 || cfg.Lock.StaleAfter <= 0 || cfg.Lock.AcquireWait <= 0 {
		t.Fatalf("lock durations must default to positive values: %+v", cfg.Lock)
	}
	if cfg.Lock.TTL >= cfg.Lock.StaleAfter {
		t.Error("a lease should expire before the holder is considered stale")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{} // everything zero

	errs := cfg.Validate()
	if len(errs) < 5 {
		t.Fatalf("zero config should produce many errors, got %d: %v", len(errs), ValidationErrors(errs))
	}

	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"logging.level", "database.path", "lock.ttl", "roles.strategist.chain", "candidates.max"} {
		if !fields[want] {
			t.Errorf("expected a validation error for %s", want)
		}
	}
}

func TestValidate_UnknownProviderInChain(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Roles.Planner.Chain = []string{"openai", "mystery-llm"}

	errs := cfg.Validate()
	found := false
	for _, e := range errs {
		if e.Field == "roles.planner.chain" && e.Value == "mystery-llm" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an error for the unknown provider, got: %v", ValidationErrors(errs))
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "lock.ttl", Value: 0, Message: "must be positive"},
		{Field: "candidates.max", Value: 99, Message: "must be between 1 and 25"},
	}

	msg := errs.Error()
	if msg == "" {
		t.Fatal("Error() should not be empty")
	}
	if got := (ValidationErrors{errs[0]}).Error(); got != errs[0].Error() {
		t.Errorf("single error should render without a header: %q", got)
	}
}

func TestExplicitOverrideBeatsDefault(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("logging.level", "debug")
	viper.Set("candidates.max", 4)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Candidates.Max != 4 {
		t.Errorf("candidates.max = %d, want 4", cfg.Candidates.Max)
	}
}
