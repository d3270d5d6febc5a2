package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/wippyai/sim-bridge/bridge"
	"github.com/wippyai/sim-bridge/handle"
	"github.com/wippyai/sim-bridge/signal"
)

type command struct {
	run   func(c *console, ctx context.Context, args []string) (string, error)
	usage string
	help  string
	min   int
	max   int
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"new":       {cmdNew, "new <model> [wave|-] [seed]", "create a handle and make it current", 1, 3},
		"delete":    {cmdDelete, "delete [handle]", "release a handle", 0, 1},
		"use":       {cmdUse, "use <handle>", "make a handle current", 1, 1},
		"handles":   {cmdHandles, "handles", "list live handles", 0, 0},
		"eval":      {cmdEval, "eval", "settle the design; prints the finish flag", 0, 0},
		"sleep":     {cmdSleep, "sleep <cycles>", "advance simulated time", 1, 1},
		"randomize": {cmdRandomize, "randomize [seed]", "fill unassigned state from seed", 0, 1},
		"precision": {cmdPrecision, "precision", "print the time precision exponent", 0, 0},
		"time":      {cmdTime, "time", "print the simulated time", 0, 0},
		"get":       {cmdGet, "get <signal> [index]", "read a scalar signal or memory word", 1, 2},
		"set":       {cmdSet, "set <signal> <value> [index]", "write a scalar signal or memory word", 2, 3},
		"getv":      {cmdGetV, "getv <signal> [index]", "read a vector as little-endian hex bytes", 1, 2},
		"setv":      {cmdSetV, "setv <signal> <hex> [index]", "write a vector from little-endian hex bytes", 2, 3},
		"wave":      {cmdWave, "wave on|off", "resume or pause waveform tracing", 1, 1},
		"signals":   {cmdSignals, "signals", "list the signals of the current handle", 0, 0},
		"help":      {cmdHelp, "help", "list commands", 0, 0},
	}
}

// console executes simctl command lines against a bridge. It tracks a
// current handle that commands without an explicit handle act on.
type console struct {
	b    *bridge.Bridge
	cur  handle.Handle
	seed uint64
}

func newConsole(b *bridge.Bridge, seed uint64) *console {
	return &console{b: b, seed: seed}
}

// errQuit is returned by Exec for "quit" and "exit".
var errQuit = errors.New("quit")

// Exec runs one command line. Blank lines and lines starting with '#'
// produce no output.
func (c *console) Exec(ctx context.Context, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", nil
	}

	args, err := shellwords.Parse(line)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", line, err)
	}
	if len(args) == 0 {
		return "", nil
	}

	name, args := args[0], args[1:]
	if name == "quit" || name == "exit" {
		return "", errQuit
	}
	cmd, ok := commands[name]
	if !ok {
		return "", fmt.Errorf("unknown command %q (try help)", name)
	}
	if len(args) < cmd.min || len(args) > cmd.max {
		return "", fmt.Errorf("usage: %s", cmd.usage)
	}
	return cmd.run(c, ctx, args)
}

// Run executes every line of r, writing results to w. It stops at the
// first failing line.
func (c *console) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		out, err := c.Exec(ctx, sc.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if out != "" {
			fmt.Fprintln(w, out)
		}
	}
	return sc.Err()
}

// current returns the current handle or an error when there is none.
func (c *console) current() (handle.Handle, error) {
	if c.cur.IsZero() {
		return c.cur, fmt.Errorf("no current handle (use new or use)")
	}
	return c.cur, nil
}

// signalID accepts a numeric id or a signal name of the current model.
func (c *console) signalID(h handle.Handle, s string) (signal.ID, signal.Info, error) {
	layout, err := c.b.Signals(h)
	if err != nil {
		return 0, signal.Info{}, err
	}
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		info, _ := layout.Lookup(signal.ID(n))
		return signal.ID(n), info, nil
	}
	for _, info := range layout {
		if info.Name == s {
			return info.ID, info, nil
		}
	}
	return 0, signal.Info{}, fmt.Errorf("no signal named %q", s)
}

// target resolves the signal argument and the optional memory index.
func (c *console) target(args []string, indexAt int) (handle.Handle, signal.ID, *uint32, error) {
	h, err := c.current()
	if err != nil {
		return h, 0, nil, err
	}
	id, _, err := c.signalID(h, args[0])
	if err != nil {
		return h, 0, nil, err
	}
	if len(args) <= indexAt {
		return h, id, nil, nil
	}
	idx, err := strconv.ParseUint(args[indexAt], 0, 32)
	if err != nil {
		return h, 0, nil, fmt.Errorf("index %q: %w", args[indexAt], err)
	}
	i := uint32(idx)
	return h, id, &i, nil
}

func cmdNew(c *console, ctx context.Context, args []string) (string, error) {
	wave := ""
	if len(args) > 1 && args[1] != "-" {
		wave = args[1]
	}
	seed := c.seed
	if len(args) > 2 {
		v, err := strconv.ParseUint(args[2], 0, 64)
		if err != nil {
			return "", fmt.Errorf("seed %q: %w", args[2], err)
		}
		seed = v
	}
	h, err := c.b.NewHandle(ctx, args[0], wave, seed)
	if err != nil {
		return "", err
	}
	c.cur = h
	return h.String(), nil
}

func cmdDelete(c *console, ctx context.Context, args []string) (string, error) {
	h := c.cur
	if len(args) == 1 {
		var err error
		if h, err = handle.Parse(args[0]); err != nil {
			return "", err
		}
	} else if _, err := c.current(); err != nil {
		return "", err
	}
	if err := c.b.DeleteHandle(ctx, h); err != nil {
		return "", err
	}
	if h == c.cur {
		c.cur = handle.Handle{}
	}
	return "", nil
}

func cmdUse(c *console, _ context.Context, args []string) (string, error) {
	h, err := handle.Parse(args[0])
	if err != nil {
		return "", err
	}
	if _, err := c.b.Model(h); err != nil {
		return "", err
	}
	c.cur = h
	return "", nil
}

func cmdHandles(c *console, _ context.Context, _ []string) (string, error) {
	var lines []string
	for _, h := range c.b.Handles() {
		model, err := c.b.Model(h)
		if err != nil {
			continue
		}
		mark := " "
		if h == c.cur {
			mark = "*"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", mark, h, model))
	}
	return strings.Join(lines, "\n"), nil
}

func cmdEval(c *console, ctx context.Context, _ []string) (string, error) {
	h, err := c.current()
	if err != nil {
		return "", err
	}
	finish, err := c.b.Eval(ctx, h)
	if err != nil {
		return "", err
	}
	return strconv.FormatBool(finish), nil
}

func cmdSleep(c *console, ctx context.Context, args []string) (string, error) {
	h, err := c.current()
	if err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return "", fmt.Errorf("cycles %q: %w", args[0], err)
	}
	return "", c.b.Sleep(ctx, h, n)
}

func cmdRandomize(c *console, ctx context.Context, args []string) (string, error) {
	h, err := c.current()
	if err != nil {
		return "", err
	}
	seed := c.seed
	if len(args) == 1 {
		if seed, err = strconv.ParseUint(args[0], 0, 64); err != nil {
			return "", fmt.Errorf("seed %q: %w", args[0], err)
		}
	}
	return "", c.b.Randomize(ctx, h, seed)
}

func cmdPrecision(c *console, _ context.Context, _ []string) (string, error) {
	h, err := c.current()
	if err != nil {
		return "", err
	}
	p, err := c.b.TimePrecision(h)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(p), nil
}

func cmdTime(c *console, ctx context.Context, _ []string) (string, error) {
	h, err := c.current()
	if err != nil {
		return "", err
	}
	now, err := c.b.Time(ctx, h)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(now, 10), nil
}

func cmdGet(c *console, ctx context.Context, args []string) (string, error) {
	h, id, idx, err := c.target(args, 1)
	if err != nil {
		return "", err
	}
	var v uint64
	if idx != nil {
		v, err = c.b.GetU64Mem(ctx, h, id, *idx)
	} else {
		v, err = c.b.GetU64(ctx, h, id)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d (%#x)", v, v), nil
}

func cmdSet(c *console, ctx context.Context, args []string) (string, error) {
	h, id, idx, err := c.target(args, 2)
	if err != nil {
		return "", err
	}
	v, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return "", fmt.Errorf("value %q: %w", args[1], err)
	}
	if idx != nil {
		return "", c.b.SetU64Mem(ctx, h, id, v, *idx)
	}
	return "", c.b.SetU64(ctx, h, id, v)
}

func cmdGetV(c *console, ctx context.Context, args []string) (string, error) {
	h, id, idx, err := c.target(args, 1)
	if err != nil {
		return "", err
	}
	_, info, _ := c.signalID(h, args[0])
	buf := make([]byte, max(info.Bytes(), 1))
	var n int
	if idx != nil {
		n, err = c.b.GetAU8Mem(ctx, h, id, buf, *idx)
	} else {
		n, err = c.b.GetAU8(ctx, h, id, buf)
	}
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:n]), nil
}

func cmdSetV(c *console, ctx context.Context, args []string) (string, error) {
	h, id, idx, err := c.target(args, 2)
	if err != nil {
		return "", err
	}
	buf, err := hex.DecodeString(strings.TrimPrefix(args[1], "0x"))
	if err != nil {
		return "", fmt.Errorf("hex %q: %w", args[1], err)
	}
	if idx != nil {
		return "", c.b.SetAU8Mem(ctx, h, id, buf, *idx)
	}
	return "", c.b.SetAU8(ctx, h, id, buf)
}

func cmdWave(c *console, _ context.Context, args []string) (string, error) {
	h, err := c.current()
	if err != nil {
		return "", err
	}
	switch args[0] {
	case "on":
		return "", c.b.EnableWave(h)
	case "off":
		return "", c.b.DisableWave(h)
	}
	return "", fmt.Errorf("usage: wave on|off")
}

func cmdSignals(c *console, _ context.Context, _ []string) (string, error) {
	h, err := c.current()
	if err != nil {
		return "", err
	}
	layout, err := c.b.Signals(h)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-4s %-12s %6s %6s  %s", "id", "name", "width", "depth", "type")
	for _, info := range layout {
		fmt.Fprintf(&b, "\n%-4d %-12s %6d %6d  %s",
			info.ID, info.Label(), info.Width, info.Depth, info.TypeName())
	}
	return b.String(), nil
}

func cmdHelp(_ *console, _ context.Context, _ []string) (string, error) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "%-30s %s\n", commands[n].usage, commands[n].help)
	}
	b.WriteString("quit")
	return b.String(), nil
}
