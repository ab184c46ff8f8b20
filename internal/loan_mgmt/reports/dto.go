package reports

import (
	"time"

	"LABO-backend/internal/loan_mgmt/loans"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
	RecentLoans  = 5
)

type LoanSummaryResponse struct {
	LoanID       int64            `json:"loan_id"`
	Folio        string           `json:"folio"`
	CreatedAt    time.Time        `json:"created_at"`
	ScheduledFor *time.Time       `json:"scheduled_for,omitempty"`
	CareerID     int64            `json:"career_id"`
	CareerName   string           `json:"career_name"`
	SubjectID    int64            `json:"subject_id"`
	SubjectName  string           `json:"subject_name"`
	TeacherID    int64            `json:"teacher_id"`
	TeacherName  string           `json:"teacher_name"`
	PracticeID   *int64           `json:"practice_id,omitempty"`
	PracticeName string           `json:"practice_name,omitempty"`
	Location     string           `json:"location"`
	Observation  string           `json:"observation,omitempty"`
	Importance   loans.Importance `json:"importance"`
	State        loans.State      `json:"state"`
	Visible      bool             `json:"visible"`
	UserID       int64            `json:"user_id"`
	Username     string           `json:"username"`
	LineCount    int              `json:"line_count"`
	UnitCount    int              `json:"unit_count"`
}

type LoanPageResponse struct {
	Items      []LoanSummaryResponse `json:"items"`
	Total      int                   `json:"total"`
	NextOffset *int                  `json:"next_offset,omitempty"`
}

type SubjectParticipantsResponse struct {
	SubjectID    int64  `json:"subject_id"`
	SubjectName  string `json:"subject_name"`
	Participants int    `json:"participants"`
}

type SubjectCountResponse struct {
	Subjects int `json:"subjects"`
}

type MaterialUsageResponse struct {
	MaterialID   int64  `json:"material_id"`
	MaterialName string `json:"material_name"`
	TimesUsed    int    `json:"times_used"`
	TotalUnits   int    `json:"total_units"`
}

type ObservationResponse struct {
	LoanID      int64            `json:"loan_id"`
	Folio       string           `json:"folio"`
	CreatedAt   time.Time        `json:"created_at"`
	SubjectName string           `json:"subject_name"`
	TeacherName string           `json:"teacher_name"`
	Location    string           `json:"location"`
	Observation string           `json:"observation"`
	Importance  loans.Importance `json:"importance"`
	State       loans.State      `json:"state"`
}

type DashboardResponse struct {
	TotalLoans       int                   `json:"total_loans"`
	ActiveLoans      int                   `json:"active_loans"`
	LoansToday       int                   `json:"loans_today"`
	MaterialsInStock int                   `json:"materials_in_stock"`
	Recent           []LoanSummaryResponse `json:"recent"`
}

func toSummaryResponse(s LoanSummary) LoanSummaryResponse {
	return LoanSummaryResponse{
		LoanID:       s.ID,
		Folio:        s.Folio,
		CreatedAt:    s.CreatedAt,
		ScheduledFor: s.ScheduledFor,
		CareerID:     s.CareerID,
		CareerName:   s.CareerName,
		SubjectID:    s.SubjectID,
		SubjectName:  s.SubjectName,
		TeacherID:    s.TeacherID,
		TeacherName:  s.TeacherName,
		PracticeID:   s.PracticeID,
		PracticeName: s.PracticeName,
		Location:     s.Location,
		Observation:  s.Observation,
		Importance:   s.Importance,
		State:        s.State,
		Visible:      s.Visible,
		UserID:       s.UserID,
		Username:     s.Username,
		LineCount:    s.LineCount,
		UnitCount:    s.UnitCount,
	}
}

func toSummaryResponses(in []LoanSummary) []LoanSummaryResponse {
	out := make([]LoanSummaryResponse, 0, len(in))
	for _, s := range in {
		out = append(out, toSummaryResponse(s))
	}
	return out
}
