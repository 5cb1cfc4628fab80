package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("notify.moved", map[string]string{"User": "alice", "Move": "e4"})
	if err != nil || got != "Move made by alice: e4" {
		t.Fatalf("Render = %q, %v", got, err)
	}
	if _, err := c.Render("notify.moved", map[string]string{"User": "alice"}); err == nil {
		t.Fatalf("missing template field should fail")
	}
	if _, err := c.Render("notify.nope", nil); err == nil {
		t.Fatalf("unknown key should fail")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("a.yaml", "notify:\n  left: \"{{.User}} went away\"\n")
	write("notes.txt", "ignored")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, _ := c.Render("notify.left", map[string]string{"User": "bob"}); got != "bob went away" {
		t.Fatalf("override = %q", got)
	}
	if got, _ := c.Render("notify.stalemate", nil); got != "Stalemate!" {
		t.Fatalf("default kept = %q", got)
	}

	write("b.yml", "notify:\n  left: \"dup\"\n")
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("duplicate key err = %v", err)
	}
}
