package transport

import (
	"container/list"
	"sync"
)

// DefaultInboxSize is the default number of frames an Inbox holds.
const DefaultInboxSize = 16

// Inbox is a bounded queue of received frames.
// When it's full, new frames are dropped and the next Pop reports ErrBufferFull.
type Inbox struct {
	size     int
	frames   list.List
	overflow bool
	readyCh  chan struct{}
	lock     sync.Mutex
}

// NewInbox creates an Inbox holding at most size frames.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{size: size, readyCh: make(chan struct{}, 1)}
}

// Push queues a frame. It returns false if the frame is dropped.
func (b *Inbox) Push(frame []byte) bool {
	b.lock.Lock()
	accepted := b.frames.Len() < b.size
	if accepted {
		b.frames.PushBack(frame)
	} else {
		b.overflow = true
	}
	b.lock.Unlock()
	b.signal()
	return accepted
}

// Pop dequeues the oldest frame, nil if empty.
func (b *Inbox) Pop() ([]byte, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.overflow {
		b.overflow = false
		return nil, ErrBufferFull
	}
	elm := b.frames.Front()
	if elm == nil {
		return nil, nil
	}
	b.frames.Remove(elm)
	return elm.Value.([]byte), nil
}

// Len returns the number of queued frames.
func (b *Inbox) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.frames.Len()
}

// Clear drops all queued frames.
func (b *Inbox) Clear() {
	b.lock.Lock()
	b.frames.Init()
	b.overflow = false
	b.lock.Unlock()
	b.signal()
}

// Ready implements Waiter.
func (b *Inbox) Ready() <-chan struct{} {
	return b.readyCh
}

func (b *Inbox) signal() {
	select {
	case b.readyCh <- struct{}{}:
	default:
	}
}
