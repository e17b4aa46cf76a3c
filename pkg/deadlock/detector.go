// Package deadlock implements the Banker's-algorithm safety check
// spec §4.F layers over mutexes and semaphores. One Detector exists
// per resource class (mutex, semaphore) per process; it has no
// knowledge of tasks or processes, only tids (as plain ints) and
// resource ids, so it can be imported by both pkg/kernel and
// pkg/ksync without creating a cycle between them.
package deadlock

// Detector holds one resource class's available/allocation/need
// matrices, per spec §3's "Deadlock detector state".
type Detector struct {
	available []uint32
	// allocation and need are indexed [tid][resourceID]; rows grow
	// lazily as tids are first seen and are never shrunk, per spec §3.
	allocation map[int][]uint32
	need       map[int][]uint32
	numResources int
}

// New returns an empty detector with zero resources.
func New() *Detector {
	return &Detector{
		allocation: make(map[int][]uint32),
		need:       make(map[int][]uint32),
	}
}

// AddResource grows available by initialCount and appends a zero
// column to every existing tid's allocation/need row, per spec §4.F's
// "on resource creation" hook. Returns the new resource's id.
func (d *Detector) AddResource(initialCount uint32) int {
	id := d.numResources
	d.numResources++
	d.available = append(d.available, initialCount)
	for tid := range d.allocation {
		d.allocation[tid] = append(d.allocation[tid], 0)
	}
	for tid := range d.need {
		d.need[tid] = append(d.need[tid], 0)
	}
	return id
}

func (d *Detector) ensureRow(tid int) {
	if _, ok := d.allocation[tid]; !ok {
		d.allocation[tid] = make([]uint32, d.numResources)
	}
	if _, ok := d.need[tid]; !ok {
		d.need[tid] = make([]uint32, d.numResources)
	}
}

// RequestWouldDeadlock implements the "on down/lock request" hook:
// need[tid][id] += 1, run the safety test, and if unsafe roll the
// need increment back and report true without mutating allocation or
// available. Returns false (and leaves need incremented) if the
// request is safe to proceed with.
func (d *Detector) RequestWouldDeadlock(tid, id int) bool {
	d.ensureRow(tid)
	d.need[tid][id]++
	if !d.isSafe() {
		d.need[tid][id]--
		return true
	}
	return false
}

// CommitAcquire implements the "on successful acquisition" hook,
// called after the blocking primitive actually grants the resource:
// need -= 1, allocation += 1, available -= 1.
func (d *Detector) CommitAcquire(tid, id int) {
	d.ensureRow(tid)
	d.need[tid][id]--
	d.allocation[tid][id]++
	d.available[id]--
}

// Release implements the "on release" hook: allocation -= 1,
// available += 1.
func (d *Detector) Release(tid, id int) {
	d.ensureRow(tid)
	if d.allocation[tid][id] > 0 {
		d.allocation[tid][id]--
	}
	d.available[id]++
}

// Available returns a copy of the current available vector, for
// tests and invariant assertions.
func (d *Detector) Available() []uint32 {
	out := make([]uint32, len(d.available))
	copy(out, d.available)
	return out
}

// isSafe runs the Banker's-algorithm safety test from spec §4.F over
// the current allocation/need/available state.
func (d *Detector) isSafe() bool {
	work := make([]uint32, d.numResources)
	copy(work, d.available)

	finish := make(map[int]bool, len(d.allocation))
	for tid := range d.allocation {
		finish[tid] = false
	}

	for {
		progress := false
		for tid, done := range finish {
			if done {
				continue
			}
			if d.needFitsWork(tid, work) {
				for j := 0; j < d.numResources; j++ {
					work[j] += d.allocation[tid][j]
				}
				finish[tid] = true
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	for _, done := range finish {
		if !done {
			return false
		}
	}
	return true
}

func (d *Detector) needFitsWork(tid int, work []uint32) bool {
	row := d.need[tid]
	for j := 0; j < d.numResources; j++ {
		if row[j] > work[j] {
			return false
		}
	}
	return true
}
