package blackboard

import "sync"

// Mirror is an in-memory, push-updated copy of a task's derived state.
// It is the sole source the realtime convergence path consults - the
// backend is never re-queried for "current state" once the subscription is
// live.
//
// The mirror has a single writer: the goroutine draining a Subscription.
// Readers take snapshots under the lock. Messages arriving twice after a
// transport reconnect are appended twice; counts are therefore an upper
// bound and consumers tolerate duplicate text.
type Mirror struct {
	mu sync.RWMutex

	findings  []string
	questions []string
	claims    []string
	messages  int
	done      bool
}

// NewMirror returns an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{}
}

// Apply folds one pushed message into the mirror, in arrival order.
func (m *Mirror) Apply(msg *Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages++

	switch msg.Type {
	case MessageTypeFinding:
		m.findings = append(m.findings, msg.Content)
	case MessageTypeQuestion:
		m.questions = append(m.questions, msg.Content)
	case MessageTypeClaim:
		m.claims = append(m.claims, msg.Content)
	case MessageTypeDone:
		m.done = true
	}
}

// Run drains a subscription into the mirror until the subscription closes
// or the context is cancelled. Subscription errors are non-fatal and the
// offending message is simply absent from the mirror.
func (m *Mirror) Run(sub *Subscription) {
	for {
		select {
		case msg, ok := <-sub.Events():
			if !ok {
				return
			}
			m.Apply(msg)
		case _, ok := <-sub.Errors():
			if !ok {
				return
			}
		}
	}
}

// Findings returns a copy of the mirrored finding contents.
func (m *Mirror) Findings() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.findings...)
}

// Questions returns a copy of the mirrored question contents.
func (m *Mirror) Questions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.questions...)
}

// Claims returns a copy of the mirrored claimed subtask names.
func (m *Mirror) Claims() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.claims...)
}

// FindingCount returns the number of mirrored findings. O(1) - this is the
// realtime convergence check.
func (m *Mirror) FindingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.findings)
}

// QuestionCount returns the number of mirrored questions.
func (m *Mirror) QuestionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.questions)
}

// MessageCount returns the total number of pushed messages seen.
func (m *Mirror) MessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.messages
}

// Done reports whether a DONE marker has been pushed.
func (m *Mirror) Done() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.done
}
