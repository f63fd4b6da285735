package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/bookkeeping"
)

// sandbox points HOME and the configuration file to a temporary directory.
func sandbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("BK_CONFIG", filepath.Join(dir, "config.toml"))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := sandbox(t)
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if want := filepath.Join(dir, ".local", "share", "bookkeeping"); c.Data.Dir != want {
		t.Errorf("Data.Dir = %q, want %q", c.Data.Dir, want)
	}
	if c.Commodity.Default != "USD" || c.Schedule.Interval != 6*time.Hour || c.Log.Level != "info" {
		t.Errorf("Load() = %+v, want USD, 6h and info", c)
	}
	if c.Convention() != bookkeeping.ReverseCredit {
		t.Errorf("Convention() = %q, want %q", c.Convention(), bookkeeping.ReverseCredit)
	}
}

func TestLoad_Environment(t *testing.T) {
	dir := sandbox(t)
	t.Setenv("BK_COMMODITY_DEFAULT", "EUR")
	t.Setenv("BK_SCHEDULE_INTERVAL", "30m")
	env := filepath.Join(dir, "test.env")
	if err := os.WriteFile(env, []byte("BK_DISPLAY_REVERSE=none\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("BK_DISPLAY_REVERSE") })

	c, err := Load(env)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if c.Commodity.Default != "EUR" || c.Schedule.Interval != 30*time.Minute {
		t.Errorf("Load() = %+v, want EUR every 30m", c)
	}
	if c.Convention() != bookkeeping.ReverseNone {
		t.Errorf("Convention() = %q, want none from the env file", c.Convention())
	}
}

func TestLoad_Invalid(t *testing.T) {
	testCases := map[string]string{
		"BK_COMMODITY_DEFAULT": "ZZZ",
		"BK_DISPLAY_REVERSE":   "sideways",
		"BK_LOG_LEVEL":         "loud",
	}
	for name, value := range testCases {
		t.Run(name, func(t *testing.T) {
			sandbox(t)
			t.Setenv(name, value)
			if _, err := Load(""); err == nil {
				t.Errorf("Load() with %s=%s succeeded, want an error", name, value)
			}
		})
	}
}

func TestSave(t *testing.T) {
	dir := sandbox(t)
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	c.Data.Dir = filepath.Join(dir, "books")
	c.Schedule.Interval = time.Hour
	c.Commodity.Default = "JPY"
	if err := Save(c); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	got, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if got != c {
		t.Errorf("Load() = %+v, want %+v", got, c)
	}
	if p := got.BookPath("abc"); p != filepath.Join(dir, "books", "abc.db") {
		t.Errorf("BookPath() = %q", p)
	}
}
