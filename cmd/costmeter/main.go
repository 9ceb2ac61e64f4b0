// Command costmeter reports the cost of local agent sessions, serves the cost
// API and syncs local usage to a remote cost service.
//
//	costmeter [--json] [--config path] <command> [flags]
//
// Commands:
//
//	status                  today's totals
//	cost-report [--days N]  daily costs and breakdowns
//	anomalies               days that cost well over their rolling average
//	serve [--port N]        run the HTTP (and gRPC) API
//	sync [--resync]         push new local usage to COSTMETER_API_BASE
//	set-tier <device> <t>   set a device tier (free or pro) in the database
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/config"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

type app struct {
	cfg     *config.Config
	jsonOut bool
	out     io.Writer
	errOut  io.Writer
	now     func() time.Time
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"status", "today's totals", runStatus},
	{"cost-report", "daily costs and breakdowns", runCostReport},
	{"anomalies", "days that cost well over their rolling average", runAnomalies},
	{"serve", "run the HTTP (and gRPC) API", runServe},
	{"sync", "push new local usage to the cost service", runSync},
	{"set-tier", "set a device tier: set-tier <device_id> <free|pro>", runSetTier},
}

func printUsage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "usage: costmeter [--json] [--config path] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(w)
	global.SetOutput(w)
	global.PrintDefaults()
}

// run is main without the process exit, so tests can drive it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, now func() time.Time) int {
	global := flag.NewFlagSet("costmeter", flag.ContinueOnError)
	global.SetOutput(stderr)
	jsonOut := global.Bool("json", false, "output as JSON")
	configPath := global.String("config", os.Getenv(common.EnvKeyConfigPath), "config file (default "+config.DefaultPath+")")
	if err := global.Parse(args); err != nil {
		return exitUsage
	}

	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr, global)
		return exitUsage
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == rest[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		printUsage(stderr, global)
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	a := &app{cfg: cfg, jsonOut: *jsonOut, out: stdout, errOut: stderr, now: now}
	if err := cmd.run(ctx, a, rest[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return exitUsage
		}
		fmt.Fprintln(stderr, "error:", err)
		return exitError
	}
	return exitOK
}

// subFlags adds the per-command --json so it is accepted after the command
// name as well.
func (a *app) subFlags(name string) *flag.FlagSet {
	set := flag.NewFlagSet("costmeter "+name, flag.ContinueOnError)
	set.SetOutput(a.errOut)
	set.BoolVar(&a.jsonOut, "json", a.jsonOut, "output as JSON")
	return set
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Error loading .env file:", err)
		os.Exit(exitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, time.Now)
	stop()
	os.Exit(code)
}
