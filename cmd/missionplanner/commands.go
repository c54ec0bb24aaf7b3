package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/precisionmule/missionplanner/internal/config"
	"github.com/precisionmule/missionplanner/internal/export"
	"github.com/precisionmule/missionplanner/internal/geo"
	"github.com/precisionmule/missionplanner/internal/server"
	"github.com/precisionmule/missionplanner/internal/waypoint"
	"github.com/precisionmule/missionplanner/pkg/core"
)

var errMissingFlag = errors.New("missing required flag")

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w -%s", errMissingFlag, name)
	}
	return nil
}

// importFile applies the mission JSON (or a bare polygon array) in path.
func (a *app) importFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := a.session.Import(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	a.logger.Info("Mission imported", "file", path)
	return nil
}

// output opens path for writing, or returns stdout when path is empty.
func (a *app) output(path string) (io.Writer, func() error, error) {
	if path == "" {
		return a.stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func (a *app) writeRecord(path string) error {
	w, closeFn, err := a.output(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.session.ToRecord(false)); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

func readWaypoints(path string) ([]core.LatLng, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return waypoint.Parse(f)
}

func serveCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	listen := fs.String("listen", "", "listen address (default server.listen)")
	return func(ctx context.Context, a *app) error {
		addr := *listen
		if addr == "" {
			addr = config.GetString("server.listen")
		}

		planner, err := a.planner()
		if err != nil {
			return err
		}
		store, err := a.openStore()
		if err != nil {
			a.logger.Warn("Storage unavailable, save and load disabled", "error", err)
		} else {
			defer store.Close()
		}

		srv := server.New(a.session, planner, store, a.logger)
		fmt.Fprintf(a.stdout, "listening on http://%s\n", addr)
		return srv.ListenAndServe(ctx, addr)
	}
}

func buildCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	in := fs.String("in", "", "mission JSON file")
	out := fs.String("out", "", "waypoint file to write (default stdout)")
	return func(ctx context.Context, a *app) error {
		if err := required("in", *in); err != nil {
			return err
		}
		if err := a.importFile(*in); err != nil {
			return err
		}
		planner, err := a.planner()
		if err != nil {
			return err
		}
		path, err := a.session.Build(ctx, planner)
		if err != nil {
			return fmt.Errorf("mission build failed: %w", err)
		}
		a.logger.Info("Mission built", "waypoints", len(path))

		w, closeFn, err := a.output(*out)
		if err != nil {
			return err
		}
		if err := waypoint.Write(w, path); err != nil {
			_ = closeFn()
			return err
		}
		return closeFn()
	}
}

func waypointsCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	in := fs.String("in", "", "waypoint file")
	asJSON := fs.Bool("json", false, "print the path as JSON")
	return func(_ context.Context, a *app) error {
		if err := required("in", *in); err != nil {
			return err
		}
		path, err := readWaypoints(*in)
		if err != nil {
			return fmt.Errorf("%s: %w", *in, err)
		}
		if *asJSON {
			return json.NewEncoder(a.stdout).Encode(path)
		}

		var length float64
		for i := 1; i < len(path); i++ {
			length += geo.Distance(path[i-1], path[i])
		}
		fmt.Fprintf(a.stdout, "waypoints: %d\nlength: %.1f m\n", len(path), length)
		if len(path) > 0 {
			fmt.Fprintf(a.stdout, "home: %v, %v\n", path[0].Lat, path[0].Lng)
		}
		return nil
	}
}

func exportCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	in := fs.String("in", "", "mission JSON file")
	format := fs.String("format", "geojson", "geojson or kml")
	wpts := fs.String("waypoints", "", "waypoint file with the mission path (optional)")
	out := fs.String("out", "", "file to write (default stdout)")
	name := fs.String("name", "Mission", "document name (kml)")
	return func(_ context.Context, a *app) error {
		if err := required("in", *in); err != nil {
			return err
		}
		if err := a.importFile(*in); err != nil {
			return err
		}
		var path []core.LatLng
		if *wpts != "" {
			p, err := readWaypoints(*wpts)
			if err != nil {
				return fmt.Errorf("%s: %w", *wpts, err)
			}
			path = p
		}

		w, closeFn, err := a.output(*out)
		if err != nil {
			return err
		}
		rec := a.session.ToRecord(false)
		switch *format {
		case "geojson":
			err = export.WriteGeoJSON(w, rec, path)
		case "kml":
			err = export.WriteKML(w, *name, rec, path)
		default:
			err = fmt.Errorf("unknown format %q", *format)
		}
		if err != nil {
			_ = closeFn()
			return err
		}
		return closeFn()
	}
}

func saveCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	in := fs.String("in", "", "mission JSON file")
	key := fs.String("key", "", "storage key")
	return func(ctx context.Context, a *app) error {
		if err := required("in", *in); err != nil {
			return err
		}
		if err := required("key", *key); err != nil {
			return err
		}
		if err := a.importFile(*in); err != nil {
			return err
		}
		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := a.session.Save(ctx, store, *key); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "saved %s\n", *key)
		return nil
	}
}

func loadCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	key := fs.String("key", "", "storage key")
	out := fs.String("out", "", "mission JSON file to write (default stdout)")
	return func(ctx context.Context, a *app) error {
		if err := required("key", *key); err != nil {
			return err
		}
		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := a.session.Load(ctx, store, *key); err != nil {
			return err
		}
		return a.writeRecord(*out)
	}
}

// backuper is implemented by the SQLite store.
type backuper interface {
	Backup(path string) error
}

func listCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	backup := fs.String("backup", "", "also copy the SQLite database to this file")
	return func(ctx context.Context, a *app) error {
		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		keys, err := store.Keys(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(a.stdout, k)
		}

		if *backup == "" {
			return nil
		}
		b, ok := store.(backuper)
		if !ok {
			return errors.New("backup needs the sqlite storage backend")
		}
		if err := b.Backup(*backup); err != nil {
			return err
		}
		a.logger.Info("Database backed up", "path", *backup)
		return nil
	}
}
