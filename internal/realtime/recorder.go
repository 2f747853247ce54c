package realtime

import "sync"

// Sent is one event captured by Recorder
type Sent struct {
	UserID    string // empty for broadcasts
	Exclude   string
	Event     EventType
	Payload   interface{}
	Broadcast bool
}

// Recorder is a Dispatcher that keeps every event, for tests and for the
// seed command's dry runs. Users listed in Online are treated as connected.
type Recorder struct {
	mu     sync.Mutex
	Online map[string]bool
	events []Sent
}

func NewRecorder(online ...string) *Recorder {
	r := &Recorder{Online: map[string]bool{}}
	for _, id := range online {
		r.Online[id] = true
	}
	return r
}

func (r *Recorder) NotifyUser(userID string, event EventType, payload interface{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.Online[userID] {
		return false
	}
	r.events = append(r.events, Sent{UserID: userID, Event: event, Payload: payload})
	return true
}

func (r *Recorder) Broadcast(event EventType, payload interface{}, excludeConnID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Sent{Event: event, Payload: payload, Exclude: excludeConnID, Broadcast: true})
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.events...)
}

// Of returns the recorded events of one type
func (r *Recorder) Of(event EventType) []Sent {
	var out []Sent
	for _, s := range r.Events() {
		if s.Event == event {
			out = append(out, s)
		}
	}
	return out
}
