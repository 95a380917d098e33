package scheduler

import "time"

// Maintain runs one maintenance pass at the given instant, letting tests
// drive aging and starvation checks without the background loop.
func (s *Scheduler) Maintain(now time.Time) { s.maintain(now) }

// MaintenanceTickCount reports how many maintenance passes have run.
func (s *Scheduler) MaintenanceTickCount() int64 { return s.maintenanceTicks.Load() }
