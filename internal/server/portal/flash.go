package portal

import "sync"

// Flash holds a single notice for the next login page render. It
// implements service.Notifier so the auth manager can post "session
// expired" directly.
type Flash struct {
	mu  sync.Mutex
	msg string
}

// Notify replaces the pending notice.
func (f *Flash) Notify(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msg = message
}

// Take returns and clears the pending notice.
func (f *Flash) Take() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.msg
	f.msg = ""
	return msg
}
