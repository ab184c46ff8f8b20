package loans_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"LABO-backend/internal/catalog"
	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/platform/auth"
	"LABO-backend/internal/platform/memstore"
)

// cst is the ledger zone used by the tests, six hours behind UTC.
var cst = time.FixedZone("CST", -6*60*60)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time { return c.t }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewULID(time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("FOLIO-%04d", g.n)
}

type lab struct {
	store   *memstore.Store
	svc     *loans.Service
	clock   *stepClock
	student auth.Actor
	admin   auth.Actor

	career, subject, teacher, practice int64
	multimetro, osciloscopio, fuente   int64
}

func newLab(t *testing.T) *lab {
	t.Helper()
	s := memstore.New()
	ctx := context.Background()

	l := &lab{store: s, clock: &stepClock{t: time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)}}
	sid, err := s.Accounts().Create(ctx, &auth.Account{Username: "eva", Role: auth.RoleStudent})
	require.NoError(t, err)
	aid, err := s.Accounts().Create(ctx, &auth.Account{Username: "ana", Role: auth.RoleAdmin})
	require.NoError(t, err)
	l.student = auth.Actor{UserID: sid, Role: auth.RoleStudent}
	l.admin = auth.Actor{UserID: aid, Role: auth.RoleAdmin}

	l.career = s.AddEntity(catalog.KindCareer, "Ingeniería Electrónica", nil)
	l.subject = s.AddEntity(catalog.KindSubject, "Circuitos Eléctricos", &l.career)
	l.teacher = s.AddEntity(catalog.KindTeacher, "Dra. Ana Núñez", nil)
	l.practice = s.AddEntity(catalog.KindPractice, "Ley de Ohm", &l.subject)
	l.multimetro = s.AddMaterial("Multímetro", "medición", 10)
	l.osciloscopio = s.AddMaterial("Osciloscopio", "medición", 4)
	l.fuente = s.AddMaterial("Fuente de poder", "alimentación", 1)

	l.svc = loans.NewService(s.Loans(), zap.NewNop(), cst,
		loans.WithClock(l.clock),
		loans.WithIDGen(&seqIDs{}),
	)
	return l
}

func (l *lab) request(lines ...loans.LineInput) loans.CreateLoanRequest {
	return loans.CreateLoanRequest{
		CareerID:  l.career,
		SubjectID: l.subject,
		TeacherID: l.teacher,
		Location:  "Lab 3",
		Lines:     lines,
	}
}

func (l *lab) stock(t *testing.T, materialID int64) int {
	t.Helper()
	m, err := l.store.Inventory().GetMaterial(context.Background(), materialID)
	require.NoError(t, err)
	return m.AvailableQuantity
}

func line(materialID int64, qty int) loans.LineInput {
	return loans.LineInput{MaterialID: materialID, Quantity: qty}
}
