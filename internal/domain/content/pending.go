package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PendingSubmission is a submission suspended on a name collision. Its
// files are held in memory so it can be resumed by a later request.
type PendingSubmission struct {
	Token     string
	Owner     string
	Key       string
	Input     SubmitInput
	CreatedAt time.Time
	ExpiresAt time.Time
}

const defaultMaxPendingPerOwner = 5

// PendingStore keeps suspended submissions until they are resolved or
// expire. Each owner holds at most maxPerOwner of them at a time.
type PendingStore struct {
	mu          sync.Mutex
	items       map[string]*PendingSubmission
	ttl         time.Duration
	maxPerOwner int
	now         func() time.Time
}

// NewPendingStore returns a store whose entries live for ttl. A
// maxPerOwner of zero or less uses the default cap.
func NewPendingStore(ttl time.Duration, maxPerOwner int) *PendingStore {
	if maxPerOwner <= 0 {
		maxPerOwner = defaultMaxPendingPerOwner
	}
	return &PendingStore{
		items:       make(map[string]*PendingSubmission),
		ttl:         ttl,
		maxPerOwner: maxPerOwner,
		now:         time.Now,
	}
}

// Put assigns a token and expiry and stores p. It fails with
// ErrTooManyPending when the owner already holds the maximum number of
// live submissions.
func (s *PendingStore) Put(p *PendingSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	live := 0
	for token, other := range s.items {
		if other.Owner != p.Owner {
			continue
		}
		if !now.Before(other.ExpiresAt) {
			delete(s.items, token)
			continue
		}
		live++
	}
	if live >= s.maxPerOwner {
		return ErrTooManyPending
	}

	if p.Token == "" {
		p.Token = uuid.NewString()
	}
	p.CreatedAt = now
	p.ExpiresAt = now.Add(s.ttl)
	s.items[p.Token] = p
	return nil
}

// Take removes and returns the submission if owner raised it. A submission
// owned by someone else is left in place.
func (s *PendingStore) Take(token, owner string) (*PendingSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[token]
	if !ok {
		return nil, ErrPendingNotFound
	}
	if !s.now().Before(p.ExpiresAt) {
		delete(s.items, token)
		return nil, ErrPendingNotFound
	}
	if p.Owner != owner {
		return nil, ErrForbidden
	}
	delete(s.items, token)
	return p, nil
}

func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep drops expired submissions and reports how many were dropped.
func (s *PendingStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for token, p := range s.items {
		if !now.Before(p.ExpiresAt) {
			delete(s.items, token)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *PendingStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// spool reads f fully so it can be replayed. Files above limit are
// rejected.
func spool(f *FileInput, limit int64) (*FileInput, error) {
	if f == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorage, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorage, f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, invalid("file", "too_large")
	}
	return &FileInput{
		Name:     f.Name,
		Size:     int64(len(data)),
		MIMEType: f.MIMEType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}, nil
}
