// Package memory is an in-process implementation of repository.Store.
// Transactions are serialised by one mutex and applied copy-on-write, so
// a failing unit of work leaves no partial writes behind.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/repository"
)

type plotKey struct {
	userID int64
	index  int
}

type pairKey struct {
	userID int64
	id     int64
}

type state struct {
	seq          int64
	users        map[int64]domain.User
	plots        map[plotKey]domain.Plot
	transactions []domain.Transaction
	tasks        map[int64]domain.Task
	userTasks    map[pairKey]domain.UserTask
	withdrawals  map[int64]domain.Withdrawal
	promos       map[int64]domain.PromoCode
	redemptions  map[pairKey]domain.PromoRedemption
	settings     map[string]string
	version      int64
	logins       []domain.UserLogin
	bans         map[int64]domain.UserBan
	audit        []domain.AuditLog
}

func newState() *state {
	return &state{
		users:       make(map[int64]domain.User),
		plots:       make(map[plotKey]domain.Plot),
		tasks:       make(map[int64]domain.Task),
		userTasks:   make(map[pairKey]domain.UserTask),
		withdrawals: make(map[int64]domain.Withdrawal),
		promos:      make(map[int64]domain.PromoCode),
		redemptions: make(map[pairKey]domain.PromoRedemption),
		settings:    make(map[string]string),
		bans:        make(map[int64]domain.UserBan),
	}
}

// clone copies every table. Rows are values and pointer fields inside them
// are never mutated in place, so a shallow copy per map is enough.
func (s *state) clone() *state {
	return &state{
		seq:          s.seq,
		users:        maps.Clone(s.users),
		plots:        maps.Clone(s.plots),
		transactions: slices.Clone(s.transactions),
		tasks:        maps.Clone(s.tasks),
		userTasks:    maps.Clone(s.userTasks),
		withdrawals:  maps.Clone(s.withdrawals),
		promos:       maps.Clone(s.promos),
		redemptions:  maps.Clone(s.redemptions),
		settings:     maps.Clone(s.settings),
		version:      s.version,
		logins:       slices.Clone(s.logins),
		bans:         maps.Clone(s.bans),
		audit:        slices.Clone(s.audit),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store is safe for concurrent use.
type Store struct {
	*queries
	mu    sync.Mutex
	state *state
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	s := &Store{state: newState()}
	s.queries = &queries{store: s}
	return s
}

func (s *Store) InTx(ctx context.Context, fn func(q repository.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&queries{store: s, tx: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// queries runs against the committed state under the store lock, or
// against a transaction's working copy when tx is set.
type queries struct {
	store *Store
	tx    *state
}

func (q *queries) begin() (*state, func()) {
	if q.tx != nil {
		return q.tx, func() {}
	}
	q.store.mu.Lock()
	return q.store.state, q.store.mu.Unlock
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func ptr[T any](v T) *T {
	return &v
}
