package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/precisionmule/missionplanner/internal/config"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "missionplanner"
)

// command binds its flags on fs and returns the function that runs it.
type command struct {
	summary string
	bind    func(fs *flag.FlagSet) func(ctx context.Context, a *app) error
}

var commands = map[string]command{
	"serve":     {"run the local HTTP API for the map frontend", serveCmd},
	"build":     {"build the mission path for a mission JSON file", buildCmd},
	"waypoints": {"summarize a QGC WPL 110 waypoint file", waypointsCmd},
	"export":    {"export a mission as GeoJSON or KML", exportCmd},
	"save":      {"store a mission JSON file under a key", saveCmd},
	"load":      {"print the mission stored under a key", loadCmd},
	"list":      {"list stored mission keys", listCmd},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: %s <command> [flags]\n\ncommands:\n", AppName)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nversion %s (built %s)\n", CurrentVersion, BuildDate)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	name := strings.ToLower(args[0])
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	exec := cmd.bind(fs)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	a := newApp(stdout, stderr)
	if err := a.setup(ctx, *configDir); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	defer a.shutdown()

	if err := exec(ctx, a); err != nil {
		a.logger.Error("Command failed", "command", name, "error", err)
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}
