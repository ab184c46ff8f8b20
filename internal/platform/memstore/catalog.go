package memstore

import (
	"context"

	"LABO-backend/internal/catalog"
	"LABO-backend/internal/loan_mgmt/inventory"
	"LABO-backend/internal/platform/auth"
)

type catalogReader struct{ s *Store }

func (r catalogReader) ListActiveMaterials(ctx context.Context) ([]inventory.Material, error) {
	return inventoryRepo(r).ListMaterials(ctx, inventory.MaterialFilter{})
}

func (r catalogReader) MaterialExists(_ context.Context, id int64) (bool, error) {
	var ok bool
	_ = r.s.view(func(st *state) error {
		_, ok = st.materials[id]
		return nil
	})
	return ok, nil
}

func (r catalogReader) PracticeRequirements(_ context.Context, practiceID int64) ([]catalog.Requirement, error) {
	var out []catalog.Requirement
	err := r.s.view(func(st *state) error {
		if _, ok := st.entities[catalog.KindPractice][practiceID]; !ok {
			return catalog.ErrPracticeNotFound
		}
		out = make([]catalog.Requirement, 0, len(st.requirements[practiceID]))
		for _, req := range st.requirements[practiceID] {
			m := st.materials[req.MaterialID]
			out = append(out, catalog.Requirement{
				MaterialID:   req.MaterialID,
				MaterialName: m.Name,
				Quantity:     req.Quantity,
				Available:    m.AvailableQuantity,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByName(out, func(r catalog.Requirement) string { return r.MaterialName }, func(r catalog.Requirement) int64 { return r.MaterialID })
	return out, nil
}

func (r catalogReader) ListEntities(_ context.Context, kind catalog.EntityKind, activeOnly bool) ([]catalog.Entity, error) {
	if _, err := catalog.ParseEntityKind(kind.String()); err != nil {
		return nil, err
	}
	out := make([]catalog.Entity, 0)
	_ = r.s.view(func(st *state) error {
		if kind == catalog.KindMaterial {
			for _, m := range st.materials {
				if activeOnly && !m.Active {
					continue
				}
				out = append(out, catalog.Entity{Kind: kind, ID: m.ID, Name: m.Name, Active: m.Active})
			}
			return nil
		}
		for _, e := range st.entities[kind] {
			if activeOnly && !e.Active {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	sortByName(out, func(e catalog.Entity) string { return e.Name }, func(e catalog.Entity) int64 { return e.ID })
	return out, nil
}

// ---------- auth.AccountStore ----------

type accountStore struct{ s *Store }

func (a accountStore) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	var found *auth.Account
	_ = a.s.view(func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				acc := u
				found = &acc
				return nil
			}
		}
		return nil
	})
	return found, nil
}

func (a accountStore) Create(_ context.Context, acc *auth.Account) (int64, error) {
	var id int64
	err := a.s.update(func(st *state) error {
		for _, u := range st.users {
			if u.Username == acc.Username {
				return auth.ErrAlreadyExists
			}
		}
		st.nextUser++
		id = st.nextUser
		u := *acc
		u.UserID = id
		u.IsDisabled = false
		u.CreatedAt = a.s.clock()
		st.users[id] = u
		return nil
	})
	return id, err
}

func (a accountStore) SetDisabled(_ context.Context, userID int64, disabled bool) (int64, error) {
	var n int64
	err := a.s.update(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return nil
		}
		u.IsDisabled = disabled
		st.users[userID] = u
		n = 1
		return nil
	})
	return n, err
}
