package playback

import "math/rand/v2"

// Queue is a FIFO of pending requests. It is owned by a single actor and
// is not safe for concurrent use.
type Queue struct {
	entries []Request
}

func (q *Queue) Push(r Request) {
	q.entries = append(q.entries, r)
}

// PushFront makes r the next request to play.
func (q *Queue) PushFront(r Request) {
	q.entries = append([]Request{r}, q.entries...)
}

func (q *Queue) Pop() (Request, bool) {
	if len(q.entries) == 0 {
		return Request{}, false
	}
	r := q.entries[0]
	q.entries[0] = Request{}
	q.entries = q.entries[1:]
	return r, true
}

func (q *Queue) Len() int {
	return len(q.entries)
}

func (q *Queue) Clear() {
	q.entries = nil
}

func (q *Queue) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(q.entries), func(i, j int) {
		q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	})
}

func (q *Queue) Entries() []Entry {
	entries := make([]Entry, len(q.entries))
	for i, r := range q.entries {
		entries[i] = r.entry()
	}
	return entries
}
