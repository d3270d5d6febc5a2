package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/sim-bridge/bridge"
	"github.com/wippyai/sim-bridge/engine/gosim"
)

func newTestConsole(t *testing.T) *console {
	t.Helper()
	b := bridge.New(gosim.Default(), nil)
	t.Cleanup(func() { b.Close(context.Background()) })
	return newConsole(b, 0)
}

func TestConsole_Exec(t *testing.T) {
	ctx := context.Background()
	c := newTestConsole(t)

	steps := []struct {
		line string
		want string
	}{
		{"new counter", "1.1"},
		{"precision", "-12"},
		{"set enable 1", ""},
		{"set clk 0", ""},
		{"eval", "false"},
		{"sleep 5", ""},
		{"set clk 1", ""},
		{"eval", "false"},
		{"get count", "1 (0x1)"},
		{"get 3", "1 (0x1)"},
		{"getv count", "01"},
		{"setv count 0f", ""},
		{"get count", "15 (0xf)"},
		{"time", "5"},
		{"# comment", ""},
		{"", ""},
		{"handles", "* 1.1 counter"},
	}
	for _, s := range steps {
		got, err := c.Exec(ctx, s.line)
		if err != nil {
			t.Fatalf("Exec(%q): %v", s.line, err)
		}
		if got != s.want {
			t.Fatalf("Exec(%q) = %q, want %q", s.line, got, s.want)
		}
	}
}

func TestConsole_Memory(t *testing.T) {
	ctx := context.Background()
	c := newTestConsole(t)

	for _, line := range []string{"new ram - 7", "set mem 0xdeadbeef 3", "setv wide_in 0102030405060708090a0b0c0d0e0f10"} {
		if _, err := c.Exec(ctx, line); err != nil {
			t.Fatalf("Exec(%q): %v", line, err)
		}
	}
	if got, _ := c.Exec(ctx, "getv mem 3"); got != "efbeadde" {
		t.Fatalf("getv mem 3 = %q", got)
	}
	if got, _ := c.Exec(ctx, "getv wide_in"); got != "0102030405060708090a0b0c0d0e0f10" {
		t.Fatalf("getv wide_in = %q", got)
	}
	out, err := c.Exec(ctx, "signals")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"wide_in", "list<u8>", "list<u32>", "bool"} {
		if !strings.Contains(out, want) {
			t.Errorf("signals output missing %q:\n%s", want, out)
		}
	}
}

func TestConsole_Errors(t *testing.T) {
	ctx := context.Background()
	c := newTestConsole(t)

	for _, line := range []string{
		"eval",
		"bogus",
		"new",
		"new nosuch",
		"new counter - notanumber",
		`new "unterminated`,
	} {
		if _, err := c.Exec(ctx, line); err == nil {
			t.Errorf("Exec(%q) should fail", line)
		}
	}

	if _, err := c.Exec(ctx, "new counter"); err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{
		"get nosuch",
		"get 99",
		"get count 1",
		"set count",
		"setv count zz",
		"setv count 0102",
		"wave maybe",
		"use 9.9",
		"use garbage",
	} {
		if _, err := c.Exec(ctx, line); err == nil {
			t.Errorf("Exec(%q) should fail", line)
		}
	}
}

func TestConsole_Randomize(t *testing.T) {
	ctx := context.Background()
	c := newTestConsole(t)

	for _, line := range []string{"new counter", "randomize 2"} {
		if _, err := c.Exec(ctx, line); err != nil {
			t.Fatalf("Exec(%q): %v", line, err)
		}
	}
	if got, _ := c.Exec(ctx, "get count"); got != "4 (0x4)" {
		t.Fatalf("get count = %q", got)
	}
	if _, err := c.Exec(ctx, "randomize x"); err == nil {
		t.Fatal("bad seed accepted")
	}
}

func TestConsole_DeleteAndUse(t *testing.T) {
	ctx := context.Background()
	c := newTestConsole(t)

	a, _ := c.Exec(ctx, "new counter")
	b, _ := c.Exec(ctx, "new lfsr")
	if _, err := c.Exec(ctx, "use "+a); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.Exec(ctx, "precision"); got != "-12" {
		t.Fatalf("precision of %s = %q", a, got)
	}
	if _, err := c.Exec(ctx, "delete"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Exec(ctx, "precision"); err == nil {
		t.Fatal("deleted handle still current")
	}
	if _, err := c.Exec(ctx, "delete "+b); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Exec(ctx, "delete "+b); err == nil {
		t.Fatal("second delete should fail")
	}
}

func TestConsole_RunScript(t *testing.T) {
	ctx := context.Background()
	c := newTestConsole(t)
	wave := filepath.Join(t.TempDir(), "run.vcd")

	script := strings.Join([]string{
		"# drive the counter for two cycles",
		"new counter '" + wave + "' 1",
		"set enable 1",
		"set clk 1",
		"eval",
		"set clk 0",
		"eval",
		"wave off",
		"set clk 1",
		"eval",
		"get count",
		"quit",
		"get count",
	}, "\n")

	var out bytes.Buffer
	if err := c.Run(ctx, strings.NewReader(script), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasSuffix(out.String(), "2 (0x2)\n") {
		t.Fatalf("output:\n%s", out.String())
	}

	data, err := os.ReadFile(wave)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n#"); n != 2 {
		t.Fatalf("wave records = %d, want 2", n)
	}
}

func TestConsole_RunStopsOnError(t *testing.T) {
	c := newTestConsole(t)
	var out bytes.Buffer
	err := c.Run(context.Background(), strings.NewReader("new counter\nget nosuch\nget count\n"), &out)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("Run = %v", err)
	}
}

func TestConsole_Help(t *testing.T) {
	out, err := newTestConsole(t).Exec(context.Background(), "help")
	if err != nil {
		t.Fatal(err)
	}
	for name := range commands {
		if !strings.Contains(out, name) {
			t.Errorf("help does not mention %s", name)
		}
	}
}
