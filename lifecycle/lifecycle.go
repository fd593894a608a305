// Package lifecycle tracks the running state shared by the client and server
// sessions.
//
// A session is constructed inert. Start flips it to running, RequestStop asks
// its loop to exit at the next poll timeout, and Finish marks it inert again
// once teardown is complete. The running flag and the should-stop flag have
// separate locks so that stop requests never wait on a busy session.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// ErrRunning is returned when starting a session that is already running.
var ErrRunning = errors.New("session already running")

type Flags struct {
	runMu   sync.Mutex
	running bool

	stopMu     sync.Mutex
	shouldStop bool
}

// Start marks the session running and clears any earlier stop request. It
// returns false if the session was already running.
func (f *Flags) Start() bool {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	if f.running {
		return false
	}
	f.running = true

	f.stopMu.Lock()
	f.shouldStop = false
	f.stopMu.Unlock()
	return true
}

func (f *Flags) Running() bool {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	return f.running
}

// Finish marks the session inert.
func (f *Flags) Finish() {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	f.running = false
}

func (f *Flags) RequestStop() {
	f.stopMu.Lock()
	defer f.stopMu.Unlock()
	f.shouldStop = true
}

func (f *Flags) ShouldStop() bool {
	f.stopMu.Lock()
	defer f.stopMu.Unlock()
	return f.shouldStop
}

// StartError reports which stage of bringing a session up failed.
type StartError struct {
	Stage string
	Err   error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors.Cause see through the wrapper.
func (e *StartError) Cause() error { return e.Err }
