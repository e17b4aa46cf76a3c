package kernel

import "sync"

// mailboxCapacity bounds pending notifications per process; kill
// against a full mailbox still sets the legacy signals bitset so the
// call never silently loses the notification, matching
// original_source/os/src/task/mail.rs's bounded-FIFO-plus-bitmask
// shape (SPEC_FULL §4.1).
const mailboxCapacity = 16

// Mailbox is a small FIFO of pending signal-like notifications
// delivered by sys_kill, supplementing spec.md's terse "signals
// bitset" with the observable delivery the original kernel has.
type Mailbox struct {
	mu   sync.Mutex
	msgs []uint32
}

func newMailbox() *Mailbox {
	return &Mailbox{}
}

// Post enqueues signal, dropping the oldest pending message if the
// mailbox is full.
func (m *Mailbox) Post(signal uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.msgs) >= mailboxCapacity {
		m.msgs = m.msgs[1:]
	}
	m.msgs = append(m.msgs, signal)
}

// Drain removes and returns up to max pending messages, FIFO order.
func (m *Mailbox) Drain(max int) []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > len(m.msgs) {
		max = len(m.msgs)
	}
	out := append([]uint32(nil), m.msgs[:max]...)
	m.msgs = m.msgs[max:]
	return out
}
