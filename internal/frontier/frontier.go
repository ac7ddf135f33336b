// Package frontier holds the crawl queue and the visited set.
//
// Admission uses two different identities on purpose: the visited set is keyed
// by origin+pathname while the pending queue is keyed by the full URL string.
// Two URLs that differ only by query string can therefore both be queued, even
// after a URL with the same path has been visited, but the exact same URL
// string is never pending twice.
package frontier

import (
	"errors"
	"net/url"
)

// ErrEmpty is returned by Next when nothing is pending.
var ErrEmpty = errors.New("frontier is empty")

// Frontier is a FIFO queue of URLs plus a grow-only visited set. It is owned by
// a single crawl run and is not safe for concurrent use.
type Frontier struct {
	queue   []*url.URL
	pending map[string]struct{}
	visited map[string]struct{}
}

// New returns an empty frontier.
func New() *Frontier {
	return &Frontier{
		pending: make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
}

// Offer appends u to the tail of the queue unless its origin+pathname was
// already visited or the identical URL string is already pending. It reports
// whether u was admitted.
func (f *Frontier) Offer(u *url.URL) bool {
	if u == nil {
		return false
	}
	if _, seen := f.visited[VisitedKey(u)]; seen {
		return false
	}
	href := Href(u)
	if _, queued := f.pending[href]; queued {
		return false
	}
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	f.queue = append(f.queue, &c)
	f.pending[href] = struct{}{}
	return true
}

// Next pops the head of the queue. It returns ErrEmpty when the queue is
// exhausted, which is the crawl's termination condition.
func (f *Frontier) Next() (*url.URL, error) {
	if len(f.queue) == 0 {
		return nil, ErrEmpty
	}
	head := f.queue[0]
	f.queue[0] = nil
	f.queue = f.queue[1:]
	delete(f.pending, Href(head))
	return head, nil
}

// MarkVisited records origin+pathname of u. Entries are never removed.
func (f *Frontier) MarkVisited(u *url.URL) {
	f.visited[VisitedKey(u)] = struct{}{}
}

// Visited reports whether the origin+pathname of u has been recorded.
func (f *Frontier) Visited(u *url.URL) bool {
	_, ok := f.visited[VisitedKey(u)]
	return ok
}

// Pending reports whether the exact URL string of u is queued.
func (f *Frontier) Pending(u *url.URL) bool {
	_, ok := f.pending[Href(u)]
	return ok
}

// Len is the number of queued URLs.
func (f *Frontier) Len() int { return len(f.queue) }

// VisitedCount is the size of the visited set.
func (f *Frontier) VisitedCount() int { return len(f.visited) }
