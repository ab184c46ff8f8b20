// Package memstore is an in-memory transactional store implementing every
// repository port of the ledger. Each transaction works on a copy of the state
// under one write lock and swaps it in only when the callback succeeds, so a
// failed operation leaves nothing behind.
package memstore

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"LABO-backend/internal/catalog"
	"LABO-backend/internal/loan_mgmt/inventory"
	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/platform/auth"
)

type requirement struct {
	MaterialID int64
	Quantity   int
}

type state struct {
	entities     map[catalog.EntityKind]map[int64]catalog.Entity
	requirements map[int64][]requirement // practice id -> template
	materials    map[int64]inventory.Material
	adjustments  []inventory.Adjustment
	loans        map[int64]loans.Loan
	lines        map[int64][]loans.Line
	participants map[int64][]loans.Participant
	users        map[int64]auth.Account

	nextEntity     int64
	nextMaterial   int64
	nextAdjustment int64
	nextLoan       int64
	nextUser       int64
}

func newState() state {
	st := state{
		entities:     map[catalog.EntityKind]map[int64]catalog.Entity{},
		requirements: map[int64][]requirement{},
		materials:    map[int64]inventory.Material{},
		loans:        map[int64]loans.Loan{},
		lines:        map[int64][]loans.Line{},
		participants: map[int64][]loans.Participant{},
		users:        map[int64]auth.Account{},
	}
	for _, k := range []catalog.EntityKind{catalog.KindCareer, catalog.KindSubject, catalog.KindTeacher, catalog.KindPractice} {
		st.entities[k] = map[int64]catalog.Entity{}
	}
	return st
}

func (s state) clone() state {
	c := s
	c.entities = make(map[catalog.EntityKind]map[int64]catalog.Entity, len(s.entities))
	for k, m := range s.entities {
		cm := make(map[int64]catalog.Entity, len(m))
		for id, e := range m {
			cm[id] = e
		}
		c.entities[k] = cm
	}
	c.requirements = make(map[int64][]requirement, len(s.requirements))
	for k, v := range s.requirements {
		c.requirements[k] = append([]requirement(nil), v...)
	}
	c.materials = make(map[int64]inventory.Material, len(s.materials))
	for k, v := range s.materials {
		c.materials[k] = v
	}
	c.adjustments = append([]inventory.Adjustment(nil), s.adjustments...)
	c.loans = make(map[int64]loans.Loan, len(s.loans))
	for k, v := range s.loans {
		c.loans[k] = v
	}
	c.lines = make(map[int64][]loans.Line, len(s.lines))
	for k, v := range s.lines {
		c.lines[k] = append([]loans.Line(nil), v...)
	}
	c.participants = make(map[int64][]loans.Participant, len(s.participants))
	for k, v := range s.participants {
		c.participants[k] = append([]loans.Participant(nil), v...)
	}
	c.users = make(map[int64]auth.Account, len(s.users))
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// Store serialises writers on one mutex. That is the in-memory equivalent of the
// row locks the MySQL stores take: a check and the write that depends on it
// never interleave with another transaction.
type Store struct {
	mu    sync.RWMutex
	st    state
	clock func() time.Time
}

func New() *Store {
	return &Store{st: newState(), clock: func() time.Time { return time.Now().UTC() }}
}

// update runs fn on a copy of the state and keeps the copy only if fn succeeds.
func (s *Store) update(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.st.clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.st = next
	return nil
}

func (s *Store) view(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.st)
}

// ---------- adapters ----------

func (s *Store) Inventory() inventory.Repository { return inventoryRepo{s} }
func (s *Store) Loans() loans.Repository         { return loanRepo{s} }
func (s *Store) Catalog() catalog.Reader         { return catalogReader{s} }
func (s *Store) Accounts() auth.AccountStore     { return accountStore{s} }

// ---------- helpers ----------

// sortByName orders by Spanish collation, so "Ácido" sorts next to "Acetona"
// rather than after "Zinc".
func sortByName[T any](items []T, name func(T) string, id func(T) int64) {
	col := collate.New(language.Spanish)
	sort.SliceStable(items, func(i, j int) bool {
		if c := col.CompareString(name(items[i]), name(items[j])); c != 0 {
			return c < 0
		}
		return id(items[i]) < id(items[j])
	})
}
