package db

import "sync"

// topic names a table whose commits are published to watchers.
type topic int

const (
	topicPokemon topic = iota
	topicTeams
	topicMembers
)

type subscriber struct {
	topics map[topic]bool
	ch     chan struct{}
}

// notifier fans commit signals out to subscribers. Each subscriber channel
// holds at most one pending signal, so bursts of commits coalesce.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscriber
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]*subscriber)}
}

func (n *notifier) subscribe(topics ...topic) (<-chan struct{}, func()) {
	sub := &subscriber{
		topics: make(map[topic]bool, len(topics)),
		ch:     make(chan struct{}, 1),
	}
	for _, t := range topics {
		sub.topics[t] = true
	}

	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = sub
	n.mu.Unlock()

	return sub.ch, func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *notifier) publish(topics ...topic) {
	if len(topics) == 0 {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subs {
		if !sub.wants(topics) {
			continue
		}
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

func (s *subscriber) wants(topics []topic) bool {
	for _, t := range topics {
		if s.topics[t] {
			return true
		}
	}
	return false
}

func (n *notifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
