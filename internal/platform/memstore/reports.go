package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"LABO-backend/internal/catalog"
	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/loan_mgmt/reports"
)

func (s *Store) Reports() reports.Repository { return reportRepo{s} }

type reportRepo struct{ s *Store }

func (st *state) summary(l loans.Loan) reports.LoanSummary {
	sm := reports.LoanSummary{
		ID:           l.ID,
		Folio:        l.Folio,
		CreatedAt:    l.CreatedAt,
		ScheduledFor: l.ScheduledFor,
		CareerID:     l.CareerID,
		CareerName:   st.name(catalog.KindCareer, l.CareerID),
		SubjectID:    l.SubjectID,
		SubjectName:  st.name(catalog.KindSubject, l.SubjectID),
		TeacherID:    l.TeacherID,
		TeacherName:  st.name(catalog.KindTeacher, l.TeacherID),
		PracticeID:   l.PracticeID,
		Location:     l.Location,
		Observation:  l.Observation,
		Importance:   l.Importance,
		State:        l.State,
		Visible:      l.Visible,
		UserID:       l.UserID,
		Username:     st.users[l.UserID].Username,
		LineCount:    len(st.lines[l.ID]),
	}
	if l.PracticeID != nil {
		sm.PracticeName = st.name(catalog.KindPractice, *l.PracticeID)
	}
	for _, ln := range st.lines[l.ID] {
		sm.UnitCount += ln.Quantity
	}
	return sm
}

// matching returns the loans passing f ordered by created_at then id.
func (st *state) matching(f reports.Filter, includeHidden bool) []loans.Loan {
	out := make([]loans.Loan, 0)
	for _, l := range st.loans {
		if f.Match(l, includeHidden) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r reportRepo) ListLoans(_ context.Context, f reports.Filter, p reports.Page) ([]reports.LoanSummary, int, error) {
	var (
		items []reports.LoanSummary
		total int
	)
	_ = r.s.view(func(st *state) error {
		ls := st.matching(f, f.IncludeHidden)
		total = len(ls)
		if p.Order != "asc" {
			for i, j := 0, len(ls)-1; i < j; i, j = i+1, j-1 {
				ls[i], ls[j] = ls[j], ls[i]
			}
		}
		lo := min(max(p.Offset, 0), len(ls))
		hi := len(ls)
		if p.Limit > 0 {
			hi = min(lo+p.Limit, len(ls))
		}
		items = make([]reports.LoanSummary, 0, hi-lo)
		for _, l := range ls[lo:hi] {
			items = append(items, st.summary(l))
		}
		return nil
	})
	return items, total, nil
}

func (r reportRepo) ParticipantsPerSubject(_ context.Context, f reports.Filter) ([]reports.SubjectParticipants, error) {
	out := make([]reports.SubjectParticipants, 0)
	_ = r.s.view(func(st *state) error {
		seen := map[int64]map[string]struct{}{}
		for _, l := range st.matching(f, false) {
			for _, p := range st.participants[l.ID] {
				key := strings.TrimSpace(p.Identifier)
				if key == "" {
					key = p.Name
				}
				if seen[l.SubjectID] == nil {
					seen[l.SubjectID] = map[string]struct{}{}
				}
				seen[l.SubjectID][key] = struct{}{}
			}
		}
		for id, keys := range seen {
			out = append(out, reports.SubjectParticipants{
				SubjectID:    id,
				SubjectName:  st.name(catalog.KindSubject, id),
				Participants: len(keys),
			})
		}
		return nil
	})
	sortByName(out, func(r reports.SubjectParticipants) string { return r.SubjectName }, func(r reports.SubjectParticipants) int64 { return r.SubjectID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Participants > out[j].Participants })
	return out, nil
}

func (r reportRepo) DistinctSubjects(_ context.Context, f reports.Filter) (int, error) {
	var n int
	_ = r.s.view(func(st *state) error {
		seen := map[int64]struct{}{}
		for _, l := range st.matching(f, false) {
			seen[l.SubjectID] = struct{}{}
		}
		n = len(seen)
		return nil
	})
	return n, nil
}

func (r reportRepo) MaterialUsage(_ context.Context, f reports.Filter) ([]reports.MaterialUsage, error) {
	out := make([]reports.MaterialUsage, 0)
	_ = r.s.view(func(st *state) error {
		agg := map[int64]*reports.MaterialUsage{}
		for _, l := range st.matching(f, false) {
			for _, ln := range st.lines[l.ID] {
				u := agg[ln.MaterialID]
				if u == nil {
					u = &reports.MaterialUsage{MaterialID: ln.MaterialID, MaterialName: st.materials[ln.MaterialID].Name}
					agg[ln.MaterialID] = u
				}
				u.TimesUsed++
				u.TotalUnits += ln.Quantity
			}
		}
		for _, u := range agg {
			out = append(out, *u)
		}
		return nil
	})
	sortByName(out, func(u reports.MaterialUsage) string { return u.MaterialName }, func(u reports.MaterialUsage) int64 { return u.MaterialID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimesUsed > out[j].TimesUsed })
	return out, nil
}

func (r reportRepo) Observations(_ context.Context, f reports.Filter, importance *loans.Importance) ([]reports.Observation, error) {
	out := make([]reports.Observation, 0)
	_ = r.s.view(func(st *state) error {
		ls := st.matching(f, false)
		for i := len(ls) - 1; i >= 0; i-- {
			l := ls[i]
			if strings.TrimSpace(l.Observation) == "" {
				continue
			}
			if importance != nil && l.Importance != *importance {
				continue
			}
			out = append(out, reports.Observation{
				LoanID:      l.ID,
				Folio:       l.Folio,
				CreatedAt:   l.CreatedAt,
				SubjectName: st.name(catalog.KindSubject, l.SubjectID),
				TeacherName: st.name(catalog.KindTeacher, l.TeacherID),
				Location:    l.Location,
				Observation: l.Observation,
				Importance:  l.Importance,
				State:       l.State,
			})
		}
		return nil
	})
	// newest first already; urgent ones move to the front
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance == loans.ImportanceUrgent && out[j].Importance != loans.ImportanceUrgent
	})
	return out, nil
}

func (r reportRepo) Dashboard(_ context.Context, dayStart, dayEnd time.Time, recent int) (reports.Dashboard, error) {
	var d reports.Dashboard
	_ = r.s.view(func(st *state) error {
		for _, l := range st.loans {
			if l.State == loans.StateActive {
				d.ActiveLoans++
			}
			if !l.Visible {
				continue
			}
			d.TotalLoans++
			if !l.CreatedAt.Before(dayStart) && l.CreatedAt.Before(dayEnd) {
				d.LoansToday++
			}
		}
		for _, m := range st.materials {
			if m.Active && m.AvailableQuantity > 0 {
				d.MaterialsInStock++
			}
		}
		ls := st.matching(reports.Filter{}, false)
		d.Recent = make([]reports.LoanSummary, 0, recent)
		for i := len(ls) - 1; i >= 0 && len(d.Recent) < recent; i-- {
			d.Recent = append(d.Recent, st.summary(ls[i]))
		}
		return nil
	})
	return d, nil
}
