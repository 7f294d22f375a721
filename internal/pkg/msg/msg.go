// Package msg is a small topic publisher used to report iteration progress to whoever
// drives the column generation loop.
package msg

import (
	"sync"

	log "github.com/golang/glog"
	"github.com/google/uuid"
)

// Topic names a kind of event.
type Topic int

const (
	// Parsed follows fact parsing and model building.
	Parsed Topic = iota
	// Solved follows a successful master solve.
	Solved
	// Written follows dual emission.
	Written
	// Failed follows any stage that returned an error.
	Failed
)

func (t Topic) String() string {
	switch t {
	case Parsed:
		return "Parsed"
	case Solved:
		return "Solved"
	case Written:
		return "Written"
	case Failed:
		return "Failed"
	}
	return "Unknown"
}

// Publisher is an interface for objects that allow subscribtion to their events
type Publisher interface {
	Subscribe(uuid.UUID, Topic) <-chan Msg
	Unsubscribe(uuid.UUID)
}

// Msg is one published event.
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factory function
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID
func (v Msg) PID() uuid.UUID {
	return v.sender
}

func (v Msg) Topic() Topic {
	return v.topic
}

// Payload returns the message data
func (v Msg) Payload() interface{} {
	return v.payload
}

// Backlog is the number of undelivered messages a subscriber may hold before further
// messages to it are dropped.
const Backlog = 16

// PubSub fans messages out to subscribers by topic. Publish never blocks.
type PubSub struct {
	mux  sync.Mutex
	pid  uuid.UUID
	subs map[uuid.UUID]map[Topic]chan Msg
}

// NewPublisher returns a PubSub that stamps messages with pid.
func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{pid: pid, subs: map[uuid.UUID]map[Topic]chan Msg{}}
}

// Subscribe returns the channel on which subscriber pid receives topic. Subscribing twice
// to the same topic returns the same channel.
func (p *PubSub) Subscribe(pid uuid.UUID, topic Topic) <-chan Msg {
	p.mux.Lock()
	defer p.mux.Unlock()
	topics, ok := p.subs[pid]
	if !ok {
		topics = map[Topic]chan Msg{}
		p.subs[pid] = topics
	}
	ch, ok := topics[topic]
	if !ok {
		ch = make(chan Msg, Backlog)
		topics[topic] = ch
	}
	return ch
}

// Unsubscribe closes every channel held by subscriber pid.
func (p *PubSub) Unsubscribe(pid uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()
	for _, ch := range p.subs[pid] {
		close(ch)
	}
	delete(p.subs, pid)
}

// Publish sends payload to every subscriber of topic.
func (p *PubSub) Publish(topic Topic, payload interface{}) {
	p.mux.Lock()
	defer p.mux.Unlock()
	m := New(p.pid, topic, payload)
	for pid, topics := range p.subs {
		ch, ok := topics[topic]
		if !ok {
			continue
		}
		select {
		case ch <- m:
		default:
			log.Warningf("[PubSub] subscriber %s is full, dropped %s", pid, topic)
		}
	}
}
