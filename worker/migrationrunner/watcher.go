// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migrationrunner

import (
	"sync"

	"github.com/juju/pubsub/v2"
	"gopkg.in/tomb.v2"
)

// ProgressWatcher passes back progress events published on the hub.
type ProgressWatcher struct {
	tomb    tomb.Tomb
	changes chan ProgressEvent
	// We can't send down a closed channel, so protect sending with a
	// mutex and a flag.
	closed bool
	mu     sync.Mutex
}

// NewProgressWatcher returns a watcher over the hub's progress topic.
// The changes channel holds the latest unobserved event; a slow
// reader sees the freshest progress, not every intermediate batch.
func NewProgressWatcher(hub *pubsub.SimpleHub) *ProgressWatcher {
	w := &ProgressWatcher{
		changes: make(chan ProgressEvent, 1),
	}
	unsub := hub.Subscribe(ProgressTopic, w.onEvent)
	w.tomb.Go(func() error {
		<-w.tomb.Dying()
		unsub()
		return nil
	})
	return w
}

// Changes returns the event channel.
func (w *ProgressWatcher) Changes() <-chan ProgressEvent {
	return w.changes
}

// Kill is part of the worker.Worker interface.
func (w *ProgressWatcher) Kill() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	// The watcher must be dying before the channel closes, or readers
	// could fail while the tomb still reports alive.
	w.tomb.Kill(nil)
	w.closed = true
	close(w.changes)
}

// Wait is part of the worker.Worker interface.
func (w *ProgressWatcher) Wait() error {
	return w.tomb.Wait()
}

func (w *ProgressWatcher) onEvent(topic string, data interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	event, ok := data.(ProgressEvent)
	if !ok {
		logger.Criticalf("programming error: topic data expected ProgressEvent, got %T", data)
		return
	}
	// Replace any pending event so the reader always gets the latest.
	select {
	case <-w.changes:
	default:
	}
	w.changes <- event
}
