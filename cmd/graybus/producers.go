package main

import (
	"context"
	"time"

	"github.com/nerrad567/graybus/internal/bus"
)

// batteryEvery is how many producer ticks pass between battery readings.
const batteryEvery = 20

// runIMUProducer publishes a synthetic IMU sample every interval until ctx
// is cancelled. The publisher blocks, so a stalled subscriber slows it down.
func runIMUProducer(ctx context.Context, pub *bus.Publisher[imuSample], interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint32
	for {
		select {
		case <-ctx.Done():
			return nil
		case ts := <-ticker.C:
			seq++
			pub.Publish(syntheticIMU(seq, ts))
		}
	}
}

// runBatteryProducer publishes a synthetic battery reading every
// batteryEvery intervals until ctx is cancelled.
func runBatteryProducer(ctx context.Context, pub *bus.Publisher[batteryState], interval time.Duration) error {
	ticker := time.NewTicker(interval * batteryEvery)
	defer ticker.Stop()

	var n uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pub.Publish(syntheticBattery(n))
			n++
		}
	}
}
