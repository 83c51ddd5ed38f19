package pipeline

import "container/list"

// alertedSet is a bounded set of already-alerted track ids. Capacity
// is enforced with least-recently-seen eviction so long-running agents
// with high track churn do not grow without bound. An evicted track id
// may alert again if it reappears.
type alertedSet struct {
	capacity int
	order    *list.List // front = most recently seen
	items    map[int]*list.Element
}

func newAlertedSet(capacity int) *alertedSet {
	if capacity <= 0 {
		capacity = 1
	}
	return &alertedSet{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[int]*list.Element),
	}
}

func (s *alertedSet) Has(id int) bool {
	el, ok := s.items[id]
	if ok {
		s.order.MoveToFront(el)
	}
	return ok
}

func (s *alertedSet) Add(id int) {
	if el, ok := s.items[id]; ok {
		s.order.MoveToFront(el)
		return
	}

	s.items[id] = s.order.PushFront(id)
	if s.order.Len() > s.capacity {
		back := s.order.Back()
		s.order.Remove(back)
		delete(s.items, back.Value.(int))
	}
}

func (s *alertedSet) Len() int {
	return s.order.Len()
}
