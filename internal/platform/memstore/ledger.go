package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"LABO-backend/internal/catalog"
	"LABO-backend/internal/loan_mgmt/inventory"
	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/platform/apierr"
)

var errMissingReference = apierr.New(apierr.CodeInvalidArgument, "UNKNOWN_REFERENCE", "loan references a missing row")

// txView is one open transaction. It satisfies both inventory.Tx and loans.Tx
// so stock and loan writes land in the same copy of the state.
type txView struct{ st *state }

func (t *txView) LockMaterial(_ context.Context, materialID int64) (inventory.Material, error) {
	m, ok := t.st.materials[materialID]
	if !ok {
		return inventory.Material{}, &inventory.UnknownMaterialError{MaterialID: materialID}
	}
	return m, nil
}

func (t *txView) AddQuantity(_ context.Context, materialID int64, delta int) error {
	m, ok := t.st.materials[materialID]
	if !ok || m.AvailableQuantity+delta < 0 {
		return apierr.ErrInternal(fmt.Sprintf("failed to update available_quantity of material %d", materialID))
	}
	m.AvailableQuantity += delta
	t.st.materials[materialID] = m
	return nil
}

func (t *txView) InsertAdjustment(_ context.Context, a *inventory.Adjustment) error {
	t.st.nextAdjustment++
	a.ID = t.st.nextAdjustment
	t.st.adjustments = append(t.st.adjustments, *a)
	return nil
}

func (t *txView) InsertLoan(_ context.Context, l *loans.Loan) error {
	if !t.exists(catalog.KindCareer, l.CareerID) ||
		!t.exists(catalog.KindSubject, l.SubjectID) ||
		!t.exists(catalog.KindTeacher, l.TeacherID) {
		return errMissingReference
	}
	if l.PracticeID != nil && !t.exists(catalog.KindPractice, *l.PracticeID) {
		return errMissingReference
	}
	if _, ok := t.st.users[l.UserID]; !ok && len(t.st.users) > 0 {
		return errMissingReference
	}
	t.st.nextLoan++
	l.ID = t.st.nextLoan
	t.st.loans[l.ID] = *l
	return nil
}

func (t *txView) exists(kind catalog.EntityKind, id int64) bool {
	_, ok := t.st.entities[kind][id]
	return ok
}

func (t *txView) InsertLine(_ context.Context, loanID int64, ln loans.Line) error {
	if _, ok := t.st.materials[ln.MaterialID]; !ok {
		return &inventory.UnknownMaterialError{MaterialID: ln.MaterialID}
	}
	for _, cur := range t.st.lines[loanID] {
		if cur.MaterialID == ln.MaterialID {
			return apierr.New(apierr.CodeConflict, "DUPLICATE", "loan line already exists")
		}
	}
	t.st.lines[loanID] = append(t.st.lines[loanID], ln)
	return nil
}

func (t *txView) InsertParticipant(_ context.Context, loanID int64, p loans.Participant) error {
	p.Signature = append([]byte(nil), p.Signature...)
	t.st.participants[loanID] = append(t.st.participants[loanID], p)
	return nil
}

func (t *txView) LockLoan(_ context.Context, loanID int64) (loans.Loan, error) {
	l, ok := t.st.loans[loanID]
	if !ok {
		return loans.Loan{}, loans.ErrLoanNotFound
	}
	return l, nil
}

func (t *txView) ListLines(_ context.Context, loanID int64) ([]loans.Line, error) {
	out := append([]loans.Line{}, t.st.lines[loanID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].MaterialID < out[j].MaterialID })
	return out, nil
}

func (t *txView) MarkReturned(_ context.Context, loanID int64, at time.Time, by int64) error {
	l, ok := t.st.loans[loanID]
	if !ok || l.State != loans.StateActive {
		return loans.ErrAlreadyReturned
	}
	l.State = loans.StateReturned
	l.ReturnedAt = &at
	l.ReturnedBy = &by
	t.st.loans[loanID] = l
	return nil
}

func (t *txView) HideCreatedBetween(_ context.Context, start, end time.Time) (int64, error) {
	var n int64
	for id, l := range t.st.loans {
		if !l.Visible || l.CreatedAt.Before(start) || !l.CreatedAt.Before(end) {
			continue
		}
		l.Visible = false
		t.st.loans[id] = l
		n++
	}
	return n, nil
}

// ---------- inventory.Repository ----------

type inventoryRepo struct{ s *Store }

func (r inventoryRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx inventory.Tx) error) error {
	return r.s.update(func(st *state) error {
		return fn(ctx, &txView{st: st})
	})
}

func (r inventoryRepo) GetMaterial(_ context.Context, materialID int64) (inventory.Material, error) {
	var m inventory.Material
	err := r.s.view(func(st *state) error {
		var ok bool
		if m, ok = st.materials[materialID]; !ok {
			return inventory.ErrMaterialNotFound
		}
		return nil
	})
	return m, err
}

func (r inventoryRepo) ListMaterials(_ context.Context, f inventory.MaterialFilter) ([]inventory.Material, error) {
	out := make([]inventory.Material, 0)
	_ = r.s.view(func(st *state) error {
		for _, m := range st.materials {
			if !f.IncludeInactive && !m.Active {
				continue
			}
			if f.InStockOnly && m.AvailableQuantity <= 0 {
				continue
			}
			if f.Category != nil && m.Category != strings.TrimSpace(*f.Category) {
				continue
			}
			out = append(out, m)
		}
		return nil
	})
	sortByName(out, func(m inventory.Material) string { return m.Name }, func(m inventory.Material) int64 { return m.ID })
	return out, nil
}

func (r inventoryRepo) ListAdjustments(_ context.Context, materialID int64, limit int) ([]inventory.Adjustment, error) {
	out := make([]inventory.Adjustment, 0)
	_ = r.s.view(func(st *state) error {
		for i := len(st.adjustments) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
			if st.adjustments[i].MaterialID == materialID {
				out = append(out, st.adjustments[i])
			}
		}
		return nil
	})
	return out, nil
}

// ---------- loans.Repository ----------

type loanRepo struct{ s *Store }

func (r loanRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx loans.Tx) error) error {
	return r.s.update(func(st *state) error {
		return fn(ctx, &txView{st: st})
	})
}

func (r loanRepo) GetDetail(_ context.Context, loanID int64) (loans.Detail, error) {
	var d loans.Detail
	err := r.s.view(func(st *state) error {
		l, ok := st.loans[loanID]
		if !ok {
			return loans.ErrLoanNotFound
		}
		d.Loan = l
		d.CareerName = st.name(catalog.KindCareer, l.CareerID)
		d.SubjectName = st.name(catalog.KindSubject, l.SubjectID)
		d.TeacherName = st.name(catalog.KindTeacher, l.TeacherID)
		if l.PracticeID != nil {
			d.PracticeName = st.name(catalog.KindPractice, *l.PracticeID)
		}
		d.Lines = make([]loans.DetailLine, 0, len(st.lines[loanID]))
		for _, ln := range st.lines[loanID] {
			d.Lines = append(d.Lines, loans.DetailLine{Line: ln, MaterialName: st.materials[ln.MaterialID].Name})
		}
		sort.Slice(d.Lines, func(i, j int) bool { return d.Lines[i].MaterialID < d.Lines[j].MaterialID })
		d.Participants = append([]loans.Participant{}, st.participants[loanID]...)
		return nil
	})
	if err != nil {
		return loans.Detail{}, err
	}
	return d, nil
}

func (st *state) name(kind catalog.EntityKind, id int64) string {
	return st.entities[kind][id].Name
}
