package scheduler

// Fault is a fallible step in the run protocols.
type Fault int

const (
	FaultManualLockIO Fault = iota // manual lock could not be opened/locked
	FaultProbeIO                   // loop could not probe the manual lock
	FaultJobLockIO                 // loop could not open/lock the job lock
	FaultStateRead                 // last-run marker unreadable
	FaultStateWrite                // last-run marker not persisted
)

// Policy is what a protocol does when a Fault happens.
type Policy int

const (
	// FailOpen proceeds without the guarantee the step would have given.
	FailOpen Policy = iota
	// FailClosed abandons the run for this cycle/request.
	FailClosed
	// Report keeps the outcome and only records the error.
	Report
)

// faultPolicy is the single place the error policy is decided.
//
// Lock faults fail open. A state read fault fails closed: the marker is what
// limits the job to one run per date.
var faultPolicy = map[Fault]Policy{
	FaultManualLockIO: FailOpen,
	FaultProbeIO:      FailOpen,
	FaultJobLockIO:    FailOpen,
	FaultStateRead:    FailClosed,
	FaultStateWrite:   Report,
}

// PolicyFor returns the policy for f.
func PolicyFor(f Fault) Policy {
	p, ok := faultPolicy[f]
	if !ok {
		return FailClosed
	}
	return p
}
