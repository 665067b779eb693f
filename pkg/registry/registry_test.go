package registry

import (
	"reflect"
	"testing"

	"github.com/argus-ai/argus/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		DefaultModel: "a",
		Models: []config.ModelConfig{
			{ID: "a", Name: "Model A", Provider: "zai", APIKeyEnv: "TEST_KEY_A", TimeoutSeconds: 60},
			{ID: "b", Name: "Model B", Provider: "openrouter", APIKeyEnv: "TEST_KEY_B", TimeoutSeconds: 45},
			{ID: "c", Name: "Model C", Provider: "openrouter", APIKeyEnv: "TEST_KEY_C", TimeoutSeconds: 45},
		},
	}
}

func newTestRegistry(t *testing.T, keys ...string) *Registry {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "secret")
	}
	r, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestEnabledDerivedFromCredential(t *testing.T) {
	r := newTestRegistry(t, "TEST_KEY_A", "TEST_KEY_C")

	a, ok := r.Get("a")
	if !ok || !a.Enabled {
		t.Error("model a should be enabled")
	}
	b, _ := r.Get("b")
	if b.Enabled {
		t.Error("model b has no credential, should be disabled")
	}

	enabled := r.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "a" || enabled[1].ID != "c" {
		t.Errorf("unexpected enabled set: %+v", enabled)
	}
}

func TestMissingCredentialIsNotAnError(t *testing.T) {
	r, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Enabled()) != 0 {
		t.Error("no credentials set, expected no enabled models")
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Models = append(cfg.Models, config.ModelConfig{ID: "a"})
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for duplicate model id")
	}
}

func TestUnknownDefaultRejected(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultModel = "nope"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown default model")
	}
}

func TestFallbackOrder(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		override string
		def      string
		want     []string
	}{
		{
			name: "no override, configured default first",
			keys: []string{"TEST_KEY_A", "TEST_KEY_B", "TEST_KEY_C"},
			want: []string{"a", "b", "c"},
		},
		{
			name:     "override first, then default, no duplicates",
			keys:     []string{"TEST_KEY_A", "TEST_KEY_B", "TEST_KEY_C"},
			override: "c",
			want:     []string{"c", "a", "b"},
		},
		{
			name:     "override equal to default appears once",
			keys:     []string{"TEST_KEY_A", "TEST_KEY_B"},
			override: "a",
			want:     []string{"a", "b"},
		},
		{
			name:     "disabled override skipped",
			keys:     []string{"TEST_KEY_A", "TEST_KEY_C"},
			override: "b",
			want:     []string{"a", "c"},
		},
		{
			name:     "unknown override skipped",
			keys:     []string{"TEST_KEY_A"},
			override: "zz",
			want:     []string{"a"},
		},
		{
			name: "session default replaces configured default",
			keys: []string{"TEST_KEY_A", "TEST_KEY_B", "TEST_KEY_C"},
			def:  "b",
			want: []string{"b", "a", "c"},
		},
		{
			name: "disabled default skipped entirely",
			keys: []string{"TEST_KEY_B", "TEST_KEY_C"},
			want: []string{"b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t, tt.keys...)
			got := r.FallbackOrder(tt.override, tt.def)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FallbackOrder(%q, %q) = %v, want %v", tt.override, tt.def, got, tt.want)
			}
		})
	}
}

func TestFallbackOrderNoEnabledModels(t *testing.T) {
	r, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if got := r.FallbackOrder("", ""); len(got) != 0 {
		t.Errorf("expected empty order, got %v", got)
	}
}
