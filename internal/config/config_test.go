package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
listen_addr: ":9090"
store:
  addr: "redis:6379"
route_oracle:
  base_url: "http://oracle:9000"
  default_graph: "warehouse-1"
log:
  level: "debug"
robots:
  - name: "R1"
    host: "127.0.0.1"
    port: 7001
    start_tag_id: "T1"
    cell_heights: [0.5, 1.0]
  - name: "R2"
    host: "127.0.0.1"
    port: 7002
    start_tag_id: "T2"
    cell_heights: [0.75]
`

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg := l.Current()

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.Store.DB != 0 {
		t.Errorf("Store.DB = %d, want default 0", cfg.Store.DB)
	}
	if cfg.RouteOracle.TimeoutMS != 5000 {
		t.Errorf("RouteOracle.TimeoutMS = %d, want default 5000", cfg.RouteOracle.TimeoutMS)
	}
	if len(cfg.Robots) != 2 {
		t.Fatalf("len(Robots) = %d, want 2", len(cfg.Robots))
	}
	if cfg.Robots[0].Name != "R1" || cfg.Robots[0].Port != 7001 {
		t.Errorf("Robots[0] = %+v", cfg.Robots[0])
	}
	if len(cfg.Robots[1].CellHeights) != 1 || cfg.Robots[1].CellHeights[0] != 0.75 {
		t.Errorf("Robots[1].CellHeights = %v", cfg.Robots[1].CellHeights)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
}

func TestWatchRobotsFiresOnlyWhenRobotsChange(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	changes := make(chan []RobotConfig, 4)
	l.WatchRobots(func(next []RobotConfig) { changes <- next })

	// Rewriting the same robots list must not trigger onChange.
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	select {
	case next := <-changes:
		t.Fatalf("onChange fired for an unchanged robots list: %+v", next)
	default:
	}

	changedYAML := sampleYAML + "  - name: \"R3\"\n    host: \"127.0.0.1\"\n    port: 7003\n    start_tag_id: \"T3\"\n    cell_heights: [0.5]\n"
	if err := os.WriteFile(path, []byte(changedYAML), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case next := <-changes:
		if len(next) != 3 {
			t.Fatalf("onChange robots = %d, want 3", len(next))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WatchRobots: onChange did not fire after adding a robot")
	}
}

func TestRobotsEqual(t *testing.T) {
	a := []RobotConfig{{Name: "R1", Host: "h", Port: 1, StartTagID: "T1", CellHeights: []float64{0.5}}}
	b := []RobotConfig{{Name: "R1", Host: "h", Port: 1, StartTagID: "T1", CellHeights: []float64{0.5}}}
	if !robotsEqual(a, b) {
		t.Error("robotsEqual(a, b) = false, want true for identical slices")
	}
	c := []RobotConfig{{Name: "R1", Host: "h", Port: 2, StartTagID: "T1", CellHeights: []float64{0.5}}}
	if robotsEqual(a, c) {
		t.Error("robotsEqual(a, c) = true, want false (different port)")
	}
}
