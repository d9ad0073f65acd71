package runs

type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusError   Status = "ERROR"
	StatusLoading Status = "LOADING"
)

// DeriveStatus maps a row's fetch outcome to its display status.
// failed reports whether the summary fetch failed; summary is nil while pending.
func DeriveStatus(summary *Summary, failed bool) Status {
	if failed {
		return StatusError
	}
	if summary == nil {
		return StatusLoading
	}
	if summary.Counts().Failed > 0 {
		return StatusFail
	}
	return StatusPass
}

// ParseStatus normalizes a user-supplied status name. ok is false for unknown names.
func ParseStatus(raw string) (Status, bool) {
	switch Status(upper(raw)) {
	case StatusPass:
		return StatusPass, true
	case StatusFail:
		return StatusFail, true
	case StatusError:
		return StatusError, true
	case StatusLoading:
		return StatusLoading, true
	}
	return "", false
}
