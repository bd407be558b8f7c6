package monitor

type CounterRef struct {
	Name   string
	Val    string
	Period *string
}

type CounterDistinctRef struct {
	Name   string
	Bucket string
	Val    string
}

// Mutable container for all the possible side-effects from rule execution.
// Rules stage changes here; the engine persists them in bulk after all rules
// for an event have run.
type Effects struct {
	// List of counters which should be incremented as part of processing
	// this event.
	CounterIncrements []CounterRef
	// Similar to "CounterIncrements", but for "distinct" style counters
	CounterDistinctIncrements []CounterDistinctRef
	// Flags (private annotations) which should be applied to the commenter's
	// account as a result of rule execution.
	AccountFlags []string
}

// Enqueues the named counter to be incremented at the end of all rule
// processing. Will automatically increment for all time periods.
func (e *Effects) Increment(name, val string) {
	e.CounterIncrements = append(e.CounterIncrements, CounterRef{Name: name, Val: val})
}

// Enqueues the named counter to be incremented at the end of all rule
// processing. Will only increment the indicated time period bucket.
func (e *Effects) IncrementPeriod(name, val string, period string) {
	e.CounterIncrements = append(e.CounterIncrements, CounterRef{Name: name, Val: val, Period: &period})
}

// Enqueues the named "distinct value" counter based on the supplied string
// value ("val") to be incremented at the end of all rule processing.
func (e *Effects) IncrementDistinct(name, bucket, val string) {
	e.CounterDistinctIncrements = append(e.CounterDistinctIncrements, CounterDistinctRef{Name: name, Bucket: bucket, Val: val})
}

// Enqueues the provided flag (string value) to be recorded (in the Engine's
// flagstore) at the end of rule processing.
func (e *Effects) AddAccountFlag(val string) {
	e.AccountFlags = append(e.AccountFlags, val)
}
