package sqlcache

import "math/rand"

const (
	DefaultCleanupOneIn = 1000
	DefaultVacuumOneIn  = 10
)

// MaintenancePolicy decides when a session runs cleanup and vacuum. Cleanup
// runs with probability 1/CleanupOneIn, checked when a session opens and
// again when it closes. Vacuum only follows a cleanup, with probability
// 1/VacuumOneIn. A negative value disables the pass.
type MaintenancePolicy struct {
	CleanupOneIn int
	VacuumOneIn  int
	// Intn returns a value in [0, n). Defaults to math/rand.Intn.
	Intn func(n int) int
}

// DefaultMaintenancePolicy returns the 1-in-1000 cleanup, 1-in-10 vacuum policy.
func DefaultMaintenancePolicy() MaintenancePolicy {
	return MaintenancePolicy{CleanupOneIn: DefaultCleanupOneIn, VacuumOneIn: DefaultVacuumOneIn}
}

// Due reports whether cleanup should run now.
func (p MaintenancePolicy) Due() bool {
	return p.draw(p.CleanupOneIn)
}

// VacuumDue reports whether a vacuum should follow the cleanup that just ran.
func (p MaintenancePolicy) VacuumDue() bool {
	return p.draw(p.VacuumOneIn)
}

func (p MaintenancePolicy) draw(oneIn int) bool {
	switch {
	case oneIn <= 0:
		return false
	case oneIn == 1:
		return true
	}
	intn := p.Intn
	if intn == nil {
		intn = rand.Intn
	}
	return intn(oneIn) == 0
}
