package main

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/nerrad567/graybus/internal/bus"
	"github.com/nerrad567/graybus/internal/infrastructure/config"
)

// Queue depths of the built-in subscribers.
const (
	attitudeDepth  = 16
	recorderDepth  = 64
	powerDepth     = 8
	telemetryDepth = 4
)

// lowBatteryPercent is the charge below which the power manager warns.
const lowBatteryPercent = 20

// imuSample is one inertial measurement.
type imuSample struct {
	Seq         uint32
	TimestampUS int64
	Gyro        [3]float32 // rad/s
	Accel       [3]float32 // m/s²
}

// batteryState is one battery gauge reading.
type batteryState struct {
	MilliVolts uint16
	MilliAmps  int16
	Percent    uint8
}

// topology is the node's static set of topics, publishers and dispatchers.
type topology struct {
	registry    *bus.Registry
	imu         *bus.Publisher[imuSample]
	battery     *bus.Publisher[batteryState]
	dispatchers []*bus.Dispatcher

	attitude *attitudeFilter
	recorder *recorder
	power    *powerManager
	telem    *telemetryCounter
}

// buildTopology declares /imu/sample and /battery/state with their
// subscribers and publishers, then seals the registry.
//
// The IMU publisher blocks so the attitude filter never misses a sample.
// The battery publisher drops by default; bus.battery_mode overrides it.
func buildTopology(cfg config.BusConfig, log bus.Logger) (*topology, error) {
	batteryMode := bus.Drop
	if cfg.BatteryMode != "" {
		mode, err := bus.ParseMode(cfg.BatteryMode)
		if err != nil {
			return nil, err
		}
		batteryMode = mode
	}

	t := &topology{
		attitude: &attitudeFilter{},
		recorder: &recorder{},
		power:    &powerManager{log: log},
		telem:    &telemetryCounter{},
	}
	b := bus.NewBuilder()

	imuTopic, err := bus.DefineTopic[imuSample](b, "imu", "sample")
	if err != nil {
		return nil, err
	}
	attitudeSub, err := bus.Subscribe(imuTopic, "attitude-filter", attitudeDepth, t.attitude.handle)
	if err != nil {
		return nil, err
	}
	recorderSub, err := bus.Subscribe(imuTopic, "recorder", recorderDepth, t.recorder.handle)
	if err != nil {
		return nil, err
	}
	if t.imu, err = bus.Advertise(imuTopic, "imu-driver", bus.Blocking); err != nil {
		return nil, err
	}

	batteryTopic, err := bus.DefineTopic[batteryState](b, "battery", "state")
	if err != nil {
		return nil, err
	}
	powerSub, err := bus.Subscribe(batteryTopic, "power-manager", powerDepth, t.power.handle)
	if err != nil {
		return nil, err
	}
	telemSub, err := bus.Subscribe(batteryTopic, "telemetry", telemetryDepth, t.telem.handle)
	if err != nil {
		return nil, err
	}
	if t.battery, err = bus.Advertise(batteryTopic, "battery-monitor", batteryMode); err != nil {
		return nil, err
	}

	if t.registry, err = b.Build(); err != nil {
		return nil, fmt.Errorf("building bus registry: %w", err)
	}

	imuDispatch := bus.NewDispatcher("imu", attitudeSub, recorderSub)
	powerDispatch := bus.NewDispatcher("power", powerSub, telemSub)
	for _, d := range []*bus.Dispatcher{imuDispatch, powerDispatch} {
		d.SetLogger(log)
		t.dispatchers = append(t.dispatchers, d)
	}
	return t, nil
}

// attitudeFilter integrates gyro rates into a roll/pitch/yaw estimate.
// It is only touched from the imu dispatcher.
type attitudeFilter struct {
	lastUS  int64
	attRad  [3]float64
	samples atomic.Uint64
}

func (a *attitudeFilter) handle(s *bus.Subscriber[imuSample]) {
	s.Drain(func(m imuSample) {
		if a.lastUS != 0 && m.TimestampUS > a.lastUS {
			dt := float64(m.TimestampUS-a.lastUS) / 1e6
			for i := range a.attRad {
				a.attRad[i] = math.Remainder(a.attRad[i]+float64(m.Gyro[i])*dt, 2*math.Pi)
			}
		}
		a.lastUS = m.TimestampUS
		a.samples.Add(1)
	})
}

// recorder counts IMU samples and sequence gaps.
type recorder struct {
	lastSeq uint32
	samples atomic.Uint64
	gaps    atomic.Uint64
}

func (r *recorder) handle(s *bus.Subscriber[imuSample]) {
	s.Drain(func(m imuSample) {
		if r.samples.Load() > 0 && m.Seq != r.lastSeq+1 {
			r.gaps.Add(1)
		}
		r.lastSeq = m.Seq
		r.samples.Add(1)
	})
}

// powerManager warns once each time the charge falls below lowBatteryPercent.
type powerManager struct {
	log     bus.Logger
	low     bool
	percent atomic.Uint32
}

func (p *powerManager) handle(s *bus.Subscriber[batteryState]) {
	s.Drain(func(m batteryState) {
		p.percent.Store(uint32(m.Percent))
		switch {
		case m.Percent < lowBatteryPercent && !p.low:
			p.low = true
			p.log.Warn("battery low", "percent", m.Percent, "millivolts", m.MilliVolts)
		case m.Percent >= lowBatteryPercent && p.low:
			p.low = false
			p.log.Info("battery recovered", "percent", m.Percent)
		}
	})
}

// telemetryCounter drains battery readings for the downlink.
type telemetryCounter struct {
	readings atomic.Uint64
}

func (c *telemetryCounter) handle(s *bus.Subscriber[batteryState]) {
	c.readings.Add(uint64(s.Drain(func(batteryState) {})))
}

// syntheticIMU returns a deterministic sample for seq taken at ts.
func syntheticIMU(seq uint32, ts time.Time) imuSample {
	phase := float64(seq) / 50
	return imuSample{
		Seq:         seq,
		TimestampUS: ts.UnixMicro(),
		Gyro:        [3]float32{float32(0.1 * math.Sin(phase)), float32(0.05 * math.Cos(phase)), 0.01},
		Accel:       [3]float32{0, 0, 9.81},
	}
}

// syntheticBattery returns the n-th reading of a battery that discharges by
// one percent per reading and is recharged when empty.
func syntheticBattery(n uint64) batteryState {
	percent := uint8(100 - n%101)
	return batteryState{
		MilliVolts: 10500 + uint16(percent)*21,
		MilliAmps:  -850,
		Percent:    percent,
	}
}
