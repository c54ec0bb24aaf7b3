package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/precisionmule/missionplanner/internal/api"
	"github.com/precisionmule/missionplanner/internal/config"
	"github.com/precisionmule/missionplanner/internal/waypoint"
	"github.com/precisionmule/missionplanner/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const missionJSON = `{
	"missionPolygon": [
		{"lat": 30.5635, "lng": -87.6785},
		{"lat": 30.5635, "lng": -87.6783},
		{"lat": 30.5633, "lng": -87.6783}
	],
	"startMarker": {"lat": 30.5634, "lng": -87.6784},
	"heading": 90,
	"mowingPathWidthInMeters": "0.5",
	"circleObstacles": [{"center": {"lat": 30.5634, "lng": -87.67835}, "radiusMeters": 1}],
	"polyObstacles": []
}`

var testPath = []core.LatLng{
	{Lat: 30.5634, Lng: -87.6784},
	{Lat: 30.5635, Lng: -87.6784},
	{Lat: 30.5635, Lng: -87.6783},
}

// testEnv writes a config file and a mission file into a temp dir.
func testEnv(t *testing.T, extra map[string]any) (dir, missionFile string) {
	t.Helper()
	t.Cleanup(viper.Reset)
	dir = t.TempDir()

	cfg := map[string]any{
		"logsDir": filepath.Join(dir, "logs"),
		"storage": map[string]any{
			"type":   "memory",
			"memory": map[string]any{"outputDir": filepath.Join(dir, "missions")},
			"sqlite": map[string]any{"path": filepath.Join(dir, "missions.db")},
		},
	}
	for k, v := range extra {
		cfg[k] = v
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), data, 0644))

	missionFile = filepath.Join(dir, "mission.json")
	require.NoError(t, os.WriteFile(missionFile, []byte(missionJSON), 0644))
	return dir, missionFile
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage: missionplanner")
	assert.Contains(t, stderr, "serve")

	code, _, stderr = runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, _, _ = runCLI(t, "build", "-nope")
	assert.Equal(t, 2, code)
}

func TestRun_MissingFlag(t *testing.T) {
	dir, _ := testEnv(t, nil)
	code, _, stderr := runCLI(t, "build", "-config", dir)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "missing required flag -in")
}

func TestRun_WritesLogFile(t *testing.T) {
	dir, _ := testEnv(t, nil)
	code, _, _ := runCLI(t, "list", "-config", dir)
	require.Equal(t, 0, code)

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "missionplanner-*.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	data, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Loaded config")
	assert.Contains(t, string(data), "polygonVertices=0")
}

func TestWaypointsCommand(t *testing.T) {
	dir, _ := testEnv(t, nil)
	file := filepath.Join(dir, "mission.waypoints")
	require.NoError(t, os.WriteFile(file, []byte(waypoint.Build(testPath)), 0644))

	code, stdout, stderr := runCLI(t, "waypoints", "-config", dir, "-in", file)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "waypoints: 3")
	assert.Contains(t, stdout, "length: ")

	code, stdout, _ = runCLI(t, "waypoints", "-config", dir, "-in", file, "-json")
	require.Equal(t, 0, code)
	var path []core.LatLng
	require.NoError(t, json.Unmarshal([]byte(stdout), &path))
	assert.Equal(t, testPath, path)
}

func TestBuildCommand(t *testing.T) {
	var got core.MissionRecord
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, api.BuildPath, r.URL.Path)
		assert.Equal(t, "0.5", r.URL.Query().Get("mowingPathWidthInMeters"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(testPath)
	}))
	defer ts.Close()

	dir, missionFile := testEnv(t, map[string]any{"api": map[string]any{"serverUrl": ts.URL}})
	out := filepath.Join(dir, "out.waypoints")

	code, _, stderr := runCLI(t, "build", "-config", dir, "-in", missionFile, "-out", out)
	require.Equal(t, 0, code, stderr)

	assert.Len(t, got.PolyObstacles, 1, "circle sent as an approximated polygon")
	assert.Len(t, got.PolyObstacles[0], 18)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, waypoint.Build(testPath), string(data))
}

func TestBuildCommand_ServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no path", http.StatusInternalServerError)
	}))
	defer ts.Close()

	dir, missionFile := testEnv(t, map[string]any{"api": map[string]any{"serverUrl": ts.URL}})
	code, stdout, stderr := runCLI(t, "build", "-config", dir, "-in", missionFile)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "mission build failed")
}

func TestExportCommand(t *testing.T) {
	dir, missionFile := testEnv(t, nil)
	wpts := filepath.Join(dir, "mission.waypoints")
	require.NoError(t, os.WriteFile(wpts, []byte(waypoint.Build(testPath)), 0644))

	code, stdout, stderr := runCLI(t, "export", "-config", dir, "-in", missionFile, "-waypoints", wpts)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"FeatureCollection"`)
	assert.Contains(t, stdout, `"missionPath"`)

	code, stdout, _ = runCLI(t, "export", "-config", dir, "-in", missionFile, "-format", "kml", "-name", "Back lot")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "<name>Back lot</name>")

	code, _, stderr = runCLI(t, "export", "-config", dir, "-in", missionFile, "-format", "shp")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `unknown format "shp"`)
}

func TestImport_InvalidFile(t *testing.T) {
	dir, _ := testEnv(t, nil)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"missionPolygon": []}`), 0644))

	code, _, stderr := runCLI(t, "export", "-config", dir, "-in", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "startMarker")
}

func TestSaveLoad_Memory(t *testing.T) {
	dir, missionFile := testEnv(t, nil)

	code, stdout, stderr := runCLI(t, "save", "-config", dir, "-in", missionFile, "-key", "back-lot")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "saved back-lot\n", stdout)
	assert.FileExists(t, filepath.Join(dir, "missions", "back-lot.json"))

	code, stdout, stderr = runCLI(t, "load", "-config", dir, "-key", "back-lot")
	require.Equal(t, 0, code, stderr)
	var rec core.MissionRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &rec))
	assert.Len(t, rec.MissionPolygon, 3)
	assert.Len(t, rec.CircleObstacles, 1)
	assert.Equal(t, 0.5, rec.PathWidthMeters)

	code, stdout, _ = runCLI(t, "list", "-config", dir)
	require.Equal(t, 0, code)
	assert.Equal(t, "back-lot\n", stdout)

	code, _, stderr = runCLI(t, "load", "-config", dir, "-key", "missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "key not found")
}

func TestSaveList_SQLiteBackup(t *testing.T) {
	dbDir := t.TempDir()
	dir, missionFile := testEnv(t, map[string]any{
		"storage": map[string]any{
			"type":   "sqlite",
			"sqlite": map[string]any{"path": filepath.Join(dbDir, "missions.db")},
		},
	})

	code, _, stderr := runCLI(t, "save", "-config", dir, "-in", missionFile, "-key", "north")
	require.Equal(t, 0, code, stderr)

	backup := filepath.Join(dir, "backup.db")
	code, stdout, stderr := runCLI(t, "list", "-config", dir, "-backup", backup)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "north", strings.TrimSpace(stdout))
	assert.FileExists(t, backup)
}

func TestList_BackupNeedsSQLite(t *testing.T) {
	dir, _ := testEnv(t, nil)
	code, _, stderr := runCLI(t, "list", "-config", dir, "-backup", filepath.Join(dir, "b.db"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "sqlite")
}
