package remind

// AuthStatus is the process-wide notification permission as reported
// by the notification subsystem. The scheduler only reads it and, when
// undetermined, triggers the one-time prompt; it never owns it.
type AuthStatus int

const (
	// AuthUndetermined means the user has never been asked.
	AuthUndetermined AuthStatus = iota
	// AuthDenied means the user refused, now or previously.
	AuthDenied
	// AuthGranted means alerts may be scheduled.
	AuthGranted
)

// String implements fmt.Stringer.
func (s AuthStatus) String() string {
	switch s {
	case AuthDenied:
		return "denied"
	case AuthGranted:
		return "granted"
	default:
		return "undetermined"
	}
}

// Registration describes one recurring daily alert. Key is the owning
// project's id: registering the same key again atomically replaces the
// prior registration, so one project can never have duplicate alerts.
type Registration struct {
	Key    string
	Hour   int
	Minute int
	Title  string
	Body   string
}

// Notifier is the external notification/permission subsystem.
//
// RequestAuthorization is a single async round-trip; the reply may
// arrive on any goroutine. Cancel of an unknown key is a no-op.
type Notifier interface {
	Authorization() AuthStatus
	RequestAuthorization(reply func(granted bool))
	Register(r Registration) error
	Cancel(key string)
}
