package mqtt

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/buspirate.go/pkg/protocol"
	"github.com/robotalks/buspirate.go/pkg/transport"
)

// Topic suffixes, named from the device side.
const (
	// TopicRx carries frames to the device.
	TopicRx = "rx"
	// TopicTx carries frames from the device.
	TopicTx = "tx"
)

// DeviceTopic returns the topic of a device in one direction.
func DeviceTopic(deviceID, dir string) string {
	return deviceID + "/" + dir
}

// Link implements transport.Transport over a pair of topics.
type Link struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	inbox *transport.Inbox
}

// NewLink creates a Link.
func NewLink(q *Queue) *Link {
	return &Link{Queue: q, inbox: transport.NewInbox(transport.DefaultInboxSize)}
}

// WithTopics specifies the topics.
func (l *Link) WithTopics(sub, pub string) *Link {
	l.SubTopic, l.PubTopic = sub, pub
	return l
}

// ForHost sets topics for the host talking to a device:
// SubTopic = id/tx
// PubTopic = id/rx
func (l *Link) ForHost(deviceID string) *Link {
	return l.WithTopics(DeviceTopic(deviceID, TopicTx), DeviceTopic(deviceID, TopicRx))
}

// ForDevice sets topics for the device itself:
// SubTopic = id/rx
// PubTopic = id/tx
func (l *Link) ForDevice(deviceID string) *Link {
	return l.WithTopics(DeviceTopic(deviceID, TopicRx), DeviceTopic(deviceID, TopicTx))
}

// IsConnected implements transport.Transport.
func (l *Link) IsConnected() bool {
	return l.Queue.IsConnected()
}

// Send implements transport.Transport.
func (l *Link) Send(frame []byte) error {
	if len(frame) > protocol.MaxFrameSize {
		return transport.ErrBufferFull
	}
	if !l.IsConnected() {
		return transport.ErrDisconnected
	}
	return l.Queue.Pub(l.PubTopic, frame)
}

// Receive implements transport.Transport.
func (l *Link) Receive() ([]byte, error) {
	frame, err := l.inbox.Pop()
	if frame != nil || err != nil {
		return frame, err
	}
	if !l.IsConnected() {
		return nil, transport.ErrDisconnected
	}
	return nil, nil
}

// Ready implements transport.Waiter.
func (l *Link) Ready() <-chan struct{} {
	return l.inbox.Ready()
}

// Run implements Runnable.
func (l *Link) Run(ctx context.Context) error {
	sub := l.Queue.Sub(l.SubTopic, l.handleMsg)
	if err := wait(sub.Token); err != nil {
		sub.Close()
		return err
	}
	defer sub.Close()
	defer l.inbox.Clear()
	<-ctx.Done()
	return ctx.Err()
}

func (l *Link) handleMsg(topic string, payload []byte) {
	if len(payload) > protocol.MaxFrameSize {
		glog.Warningf("%s: message of %d bytes dropped", topic, len(payload))
		return
	}
	if !l.inbox.Push(append([]byte(nil), payload...)) {
		glog.Warningf("%s: rx queue full, frame dropped", topic)
	}
}
