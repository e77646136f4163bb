package mdns

import "time"

// Clock abstracts wall-clock reads so that resend/timeout/re-announce
// logic can be driven deterministically in tests, the way the teacher's
// fake packet connections stand in for real sockets in conn_test.go.
type Clock interface {
	Now() time.Time
}

// systemClock is the default Clock, backed by time.Now.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
