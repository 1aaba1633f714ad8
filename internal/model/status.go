package model

// ScanStatus is the closed set of events a scan emits. Consumers switch on
// the concrete type; the unexported method keeps the set closed.
type ScanStatus interface {
	isScanStatus()
}

// ScanProgress reports partial completion after a batch boundary.
type ScanProgress struct {
	Fraction float64
	Message  string
}

// ScanSuccess is the terminal event of a completed scan.
type ScanSuccess struct {
	Result ScanResult
}

// ScanError is the terminal event of a failed scan.
type ScanError struct {
	Message string
}

func (ScanProgress) isScanStatus() {}
func (ScanSuccess) isScanStatus()  {}
func (ScanError) isScanStatus()    {}

// CleanupStatus is the closed set of events a cleanup operation emits.
type CleanupStatus interface {
	isCleanupStatus()
}

// CleanupProgress reports progress through a mutation, including a
// non-fatal warning stream (e.g. a failed backup write).
type CleanupProgress struct {
	Fraction  float64
	Message   string
	Processed int
	Total     int
	Warning   string
}

// CleanupSuccess is the terminal event of a completed cleanup. Partial
// failures are reported through the counts, not by downgrading to an error.
type CleanupSuccess struct {
	Message   string
	Succeeded int
	Failed    int
}

// CleanupError is the terminal event of an aborted cleanup.
type CleanupError struct {
	Message string
}

func (CleanupProgress) isCleanupStatus() {}
func (CleanupSuccess) isCleanupStatus()  {}
func (CleanupError) isCleanupStatus()    {}
