package poller

// Status is what the view shows about realtime polling.
type Status int

const (
	StatusIdle Status = iota
	StatusPolling
	// StatusRequiresLogin means the last fetch failed authentication and the
	// user has to log in again.
	StatusRequiresLogin
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPolling:
		return "polling"
	case StatusRequiresLogin:
		return "requires login"
	default:
		return "unknown"
	}
}
