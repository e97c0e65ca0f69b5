package focus

import (
	"sync"

	"github.com/okian/gazefocus/internal/domain/model"
)

// Listener is notified when its object gains or loses gaze focus.
type Listener interface {
	GazeFocusChanged(hasFocus bool)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(hasFocus bool)

// GazeFocusChanged calls f(hasFocus).
func (f ListenerFunc) GazeFocusChanged(hasFocus bool) { f(hasFocus) }

type registration struct {
	token    uint64
	listener Listener
}

// Listeners maps object ids to their registered focus listeners. An object
// with at least one listener is focusable.
type Listeners struct {
	mu      sync.RWMutex
	byID    map[model.ObjectID][]registration
	nextTok uint64
}

// NewListeners returns an empty registry.
func NewListeners() *Listeners {
	return &Listeners{byID: make(map[model.ObjectID][]registration)}
}

// Register attaches l to id and returns a function detaching it again.
func (r *Listeners) Register(id model.ObjectID, l Listener) (unregister func()) {
	r.mu.Lock()
	r.nextTok++
	tok := r.nextTok
	r.byID[id] = append(r.byID[id], registration{token: tok, listener: l})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.unregister(id, tok) })
	}
}

func (r *Listeners) unregister(id model.ObjectID, tok uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	regs := r.byID[id]
	for i, reg := range regs {
		if reg.token == tok {
			regs = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(regs) == 0 {
		delete(r.byID, id)
		return
	}
	r.byID[id] = regs
}

// Remove detaches every listener of id, typically when the object leaves
// the scene.
func (r *Listeners) Remove(id model.ObjectID) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// HasCapability reports whether id has any listener.
func (r *Listeners) HasCapability(id model.ObjectID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID[id]) > 0
}

// For returns a fresh copy of the listeners of id in registration order.
func (r *Listeners) For(id model.ObjectID) []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := r.byID[id]
	if len(regs) == 0 {
		return nil
	}
	out := make([]Listener, len(regs))
	for i, reg := range regs {
		out[i] = reg.listener
	}
	return out
}

// Len returns the number of focusable objects.
func (r *Listeners) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
