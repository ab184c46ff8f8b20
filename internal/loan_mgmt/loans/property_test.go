package loans_test

import (
	"context"
	"errors"
	"testing"

	"pgregory.net/rapid"

	"LABO-backend/internal/loan_mgmt/inventory"
	"LABO-backend/internal/loan_mgmt/loans"
)

// Stock on hand plus units held by active loans always equals the initial
// stock, whatever sequence of creates and returns is applied.
func TestStockIsConserved(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		l := newLab(t)
		materials := []int64{l.multimetro, l.osciloscopio, l.fuente}
		initial := map[int64]int{l.multimetro: 10, l.osciloscopio: 4, l.fuente: 1}
		held := map[int64]map[int64]int{} // loan -> material -> units

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if len(held) > 0 && rapid.Bool().Draw(rt, "return") {
				ids := make([]int64, 0, len(held))
				for id := range held {
					ids = append(ids, id)
				}
				id := rapid.SampledFrom(ids).Draw(rt, "loan")
				if _, err := l.svc.ReturnLoan(ctx, l.student, id); err != nil {
					rt.Fatalf("return %d: %v", id, err)
				}
				delete(held, id)
				continue
			}

			n := rapid.IntRange(1, 3).Draw(rt, "lines")
			in := make([]loans.LineInput, 0, n)
			for j := 0; j < n; j++ {
				in = append(in, line(
					rapid.SampledFrom(materials).Draw(rt, "material"),
					rapid.IntRange(1, 5).Draw(rt, "qty"),
				))
			}
			res, err := l.svc.CreateLoan(ctx, l.student, l.request(in...))
			var ise *inventory.InsufficientStockError
			switch {
			case err == nil:
				units := map[int64]int{}
				for _, ln := range res.Lines {
					units[ln.MaterialID] += ln.Quantity
				}
				held[res.LoanID] = units
			case errors.As(err, &ise):
			default:
				rt.Fatalf("create: %v", err)
			}
		}

		for _, m := range materials {
			onLoan := 0
			for _, units := range held {
				onLoan += units[m]
			}
			got := l.stock(t, m)
			if got < 0 {
				rt.Fatalf("material %d went negative: %d", m, got)
			}
			if got+onLoan != initial[m] {
				rt.Fatalf("material %d: %d on hand + %d on loan != %d", m, got, onLoan, initial[m])
			}
		}
	})
}
