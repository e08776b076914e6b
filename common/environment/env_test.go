package environment_test

import (
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/termassist/common/environment"
)

func TestOverlay_AppliesSetValues(t *testing.T) {
	o := environment.FromMap(map[string]string{
		"NAME":    "  redis ",
		"SIZE":    "25",
		"DRY":     "yes",
		"TIMEOUT": "90s",
		"BLANK":   "   ",
	})

	name, size, dry, timeout, blank := "sqlite", 100, false, time.Minute, "keep"
	o.String("NAME", &name)
	o.Int("SIZE", &size)
	o.Bool("DRY", &dry)
	o.Duration("TIMEOUT", &timeout)
	o.String("BLANK", &blank)
	o.String("MISSING", &blank)

	if err := o.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "redis" || size != 25 || !dry || timeout != 90*time.Second || blank != "keep" {
		t.Errorf("got name=%q size=%d dry=%v timeout=%s blank=%q", name, size, dry, timeout, blank)
	}
}

func TestOverlay_DurationBareSeconds(t *testing.T) {
	o := environment.FromMap(map[string]string{"T": "45"})
	d := time.Duration(0)
	o.Duration("T", &d)
	if d != 45*time.Second {
		t.Errorf("got %s, want 45s", d)
	}
}

func TestOverlay_CollectsParseErrors(t *testing.T) {
	o := environment.FromMap(map[string]string{
		"SIZE": "ten",
		"DRY":  "maybe",
		"T":    "soon",
	})
	size, dry, d := 100, true, time.Second
	o.Int("SIZE", &size)
	o.Bool("DRY", &dry)
	o.Duration("T", &d)

	err := o.Err()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, name := range []string{"SIZE", "DRY", "T="} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
	if size != 100 || !dry || d != time.Second {
		t.Error("malformed values must leave the destination untouched")
	}
}

func TestOverlay_FirstString(t *testing.T) {
	o := environment.FromMap(map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant",
		"OPENAI_API_KEY":    "sk-oai",
	})
	key := ""
	o.FirstString(&key, "LLM_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY")
	if key != "sk-ant" {
		t.Errorf("got %q, want sk-ant", key)
	}
}

func TestStringOr(t *testing.T) {
	t.Setenv("TERMASSIST_TEST_VAR", "")
	if got := environment.StringOr("TERMASSIST_TEST_VAR", "def"); got != "def" {
		t.Errorf("empty var: got %q", got)
	}
	t.Setenv("TERMASSIST_TEST_VAR", "val")
	if got := environment.StringOr("TERMASSIST_TEST_VAR", "def"); got != "val" {
		t.Errorf("set var: got %q", got)
	}
}
