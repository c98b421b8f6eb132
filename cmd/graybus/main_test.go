package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/graybus/internal/bus"
	"github.com/nerrad567/graybus/internal/infrastructure/config"
	"github.com/nerrad567/graybus/internal/infrastructure/database"
	"github.com/nerrad567/graybus/internal/kernel"
)

type captureLogger struct {
	mu    sync.Mutex
	warns []string
}

func (c *captureLogger) Debug(string, ...any) {}
func (c *captureLogger) Info(string, ...any)  {}
func (c *captureLogger) Error(string, ...any) {}

func (c *captureLogger) Warn(msg string, _ ...any) {
	c.mu.Lock()
	c.warns = append(c.warns, msg)
	c.mu.Unlock()
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYBUS_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want a config loading error", err)
	}
}

func TestRun_StartsAndStops(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "graybus.db")
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
node:
  id: test-node

bus:
  dispatch_timeout_ms: 10
  publish_interval_ms: 2

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

api:
  enabled: false

monitor:
  interval_ms: 20
  history_retention: 1

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYBUS_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	db, err := database.Open(database.Config{Path: dbPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("reopening database: %v", err)
	}
	defer db.Close()

	var rows int
	if err := db.QueryRow("SELECT COUNT(*) FROM stats_history WHERE topic = '/imu/sample'").Scan(&rows); err != nil {
		t.Fatalf("counting history: %v", err)
	}
	if rows == 0 {
		t.Error("no statistics history recorded")
	}
}

func TestBuildTopology(t *testing.T) {
	tests := []struct {
		name        string
		batteryMode string
		wantMode    bus.Mode
		wantErr     bool
	}{
		{"default drop", "", bus.Drop, false},
		{"override blocking", "blocking", bus.Blocking, false},
		{"override drop", " DROP ", bus.Drop, false},
		{"invalid", "overwrite", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo, err := buildTopology(config.BusConfig{BatteryMode: tt.batteryMode}, &captureLogger{})
			if tt.wantErr {
				if err == nil {
					t.Error("buildTopology() error = nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildTopology() error = %v", err)
			}

			if topo.battery.Mode() != tt.wantMode {
				t.Errorf("battery mode = %v, want %v", topo.battery.Mode(), tt.wantMode)
			}
			if topo.imu.Mode() != bus.Blocking {
				t.Errorf("imu mode = %v, want blocking", topo.imu.Mode())
			}
			if topo.registry.Len() != 2 || len(topo.dispatchers) != 2 {
				t.Fatalf("topics = %d, dispatchers = %d", topo.registry.Len(), len(topo.dispatchers))
			}
			for _, name := range []string{"/imu/sample", "/battery/state"} {
				info, err := topo.registry.LookupTopic(name)
				if err != nil {
					t.Errorf("LookupTopic(%q) error = %v", name, err)
					continue
				}
				if info.Subscribers != 2 || info.Publishers != 1 {
					t.Errorf("%s info = %+v", name, info)
				}
			}
		})
	}
}

func TestTopology_Dispatch(t *testing.T) {
	logger := &captureLogger{}
	topo, err := buildTopology(config.BusConfig{}, logger)
	if err != nil {
		t.Fatalf("buildTopology() error = %v", err)
	}

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := uint32(1); i <= 3; i++ {
		topo.imu.Publish(syntheticIMU(i, start.Add(time.Duration(i)*10*time.Millisecond)))
	}
	if err := topo.dispatchers[0].WaitAndHandle(kernel.After(time.Second)); err != nil {
		t.Fatalf("imu WaitAndHandle() error = %v", err)
	}
	if got := topo.attitude.samples.Load(); got != 3 {
		t.Errorf("attitude samples = %d, want 3", got)
	}
	if got, gaps := topo.recorder.samples.Load(), topo.recorder.gaps.Load(); got != 3 || gaps != 0 {
		t.Errorf("recorder samples = %d gaps = %d, want 3 and 0", got, gaps)
	}

	topo.battery.Publish(batteryState{MilliVolts: 10700, Percent: 10})
	topo.battery.Publish(batteryState{MilliVolts: 10680, Percent: 9})
	if err := topo.dispatchers[1].WaitAndHandle(kernel.After(time.Second)); err != nil {
		t.Fatalf("power WaitAndHandle() error = %v", err)
	}
	if got := topo.power.percent.Load(); got != 9 {
		t.Errorf("power percent = %d, want 9", got)
	}
	if got := topo.telem.readings.Load(); got != 2 {
		t.Errorf("telemetry readings = %d, want 2", got)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 || logger.warns[0] != "battery low" {
		t.Errorf("warnings = %v, want one battery low", logger.warns)
	}
}

func TestSyntheticBattery(t *testing.T) {
	tests := []struct {
		n           uint64
		wantPercent uint8
	}{
		{0, 100},
		{1, 99},
		{100, 0},
		{101, 100},
	}

	for _, tt := range tests {
		got := syntheticBattery(tt.n)
		if got.Percent != tt.wantPercent {
			t.Errorf("syntheticBattery(%d).Percent = %d, want %d", tt.n, got.Percent, tt.wantPercent)
		}
		if want := 10500 + uint16(tt.wantPercent)*21; got.MilliVolts != want {
			t.Errorf("syntheticBattery(%d).MilliVolts = %d, want %d", tt.n, got.MilliVolts, want)
		}
	}
}

func TestRunIMUProducer(t *testing.T) {
	b := bus.NewBuilder()
	topic := bus.MustDefineTopic[imuSample](b, "imu", "sample")
	sub := bus.MustSubscribe(topic, "probe", 64, nil)
	pub := bus.MustAdvertise(topic, "imu-driver", bus.Drop)
	b.MustBuild()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runIMUProducer(ctx, pub, time.Millisecond) }()

	for want := uint32(1); want <= 3; want++ {
		msg, err := sub.Receive(kernel.After(time.Second))
		if err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
		if msg.Seq != want {
			t.Errorf("Seq = %d, want %d", msg.Seq, want)
		}
		if msg.Accel[2] != 9.81 {
			t.Errorf("Accel = %v", msg.Accel)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runIMUProducer() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("producer did not stop after cancel")
	}
}
