package job

import (
	"context"
	"math/rand"
	"time"
)

// Spawner is the slice of the kernel's lifecycle API AperiodicGenerator
// needs: the ability to deposit a fresh aperiodic job.
type Spawner interface {
	SpawnAperiodic(name string, capacityTicks int64) (int32, error)
}

// AperiodicGenerator returns a periodic task body that, once per job
// release, waits a randomized interval and then spawns one aperiodic
// job of randomized cost. The kernel's own periodic release supplies
// the "loop"; the body supplies one wait-then-spawn per job.
func AperiodicGenerator(spawner Spawner, rng *rand.Rand) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		delay := time.Duration(60+rng.Intn(140)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		cost := int64(1 + rng.Intn(5))
		_, err := spawner.SpawnAperiodic("dummy task", cost)
		if err != nil {
			// A transient admission/capacity failure to spawn one
			// aperiodic job shouldn't fail the generator's own job;
			// it simply tries again next release.
			return nil
		}
		return nil
	}
}
