package loans

import "time"

type LineInput struct {
	MaterialID int64 `json:"material_id"`
	Quantity   int   `json:"quantity"`
}

type ParticipantInput struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier,omitempty"` // student number
	Signature  []byte `json:"signature,omitempty"`  // base64 in JSON, stored opaque
}

type CreateLoanRequest struct {
	CareerID     int64              `json:"career_id"`
	SubjectID    int64              `json:"subject_id"`
	TeacherID    int64              `json:"teacher_id"`
	PracticeID   *int64             `json:"practice_id,omitempty"`
	ScheduledFor *time.Time         `json:"scheduled_for,omitempty"`
	Location     string             `json:"location"`
	Observation  string             `json:"observation,omitempty"`
	Importance   string             `json:"importance,omitempty"` // normal | urgent
	Lines        []LineInput        `json:"lines"`
	Participants []ParticipantInput `json:"participants"`
}

type LoanCreatedResponse struct {
	LoanID    int64       `json:"loan_id"`
	Folio     string      `json:"folio"`
	CreatedAt time.Time   `json:"created_at"`
	State     State       `json:"state"`
	Lines     []LineInput `json:"lines"`
}

type ReturnResponse struct {
	LoanID     int64       `json:"loan_id"`
	State      State       `json:"state"`
	ReturnedAt time.Time   `json:"returned_at"`
	Released   []LineInput `json:"released"`
}

type HideResponse struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Affected int64  `json:"affected"`
}

type DetailLineResponse struct {
	MaterialID   int64  `json:"material_id"`
	MaterialName string `json:"material_name"`
	Quantity     int    `json:"quantity"`
}

type ParticipantResponse struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier,omitempty"`
	Signature  []byte `json:"signature,omitempty"`
}

type LoanDetailResponse struct {
	LoanID       int64                 `json:"loan_id"`
	Folio        string                `json:"folio"`
	CreatedAt    time.Time             `json:"created_at"`
	ScheduledFor *time.Time            `json:"scheduled_for,omitempty"`
	CareerID     int64                 `json:"career_id"`
	CareerName   string                `json:"career_name"`
	SubjectID    int64                 `json:"subject_id"`
	SubjectName  string                `json:"subject_name"`
	TeacherID    int64                 `json:"teacher_id"`
	TeacherName  string                `json:"teacher_name"`
	PracticeID   *int64                `json:"practice_id,omitempty"`
	PracticeName string                `json:"practice_name,omitempty"`
	Location     string                `json:"location"`
	Observation  string                `json:"observation,omitempty"`
	Importance   Importance            `json:"importance"`
	State        State                 `json:"state"`
	Visible      bool                  `json:"visible"`
	UserID       int64                 `json:"user_id"`
	ReturnedAt   *time.Time            `json:"returned_at,omitempty"`
	ReturnedBy   *int64                `json:"returned_by,omitempty"`
	Lines        []DetailLineResponse  `json:"lines"`
	Participants []ParticipantResponse `json:"participants"`
}

func toLineInputs(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, ln := range lines {
		out = append(out, LineInput{MaterialID: ln.MaterialID, Quantity: ln.Quantity})
	}
	return out
}

func toDetailResponse(d Detail) LoanDetailResponse {
	res := LoanDetailResponse{
		LoanID:       d.ID,
		Folio:        d.Folio,
		CreatedAt:    d.CreatedAt,
		ScheduledFor: d.ScheduledFor,
		CareerID:     d.CareerID,
		CareerName:   d.CareerName,
		SubjectID:    d.SubjectID,
		SubjectName:  d.SubjectName,
		TeacherID:    d.TeacherID,
		TeacherName:  d.TeacherName,
		PracticeID:   d.PracticeID,
		PracticeName: d.PracticeName,
		Location:     d.Location,
		Observation:  d.Observation,
		Importance:   d.Importance,
		State:        d.State,
		Visible:      d.Visible,
		UserID:       d.UserID,
		ReturnedAt:   d.ReturnedAt,
		ReturnedBy:   d.ReturnedBy,
		Lines:        make([]DetailLineResponse, 0, len(d.Lines)),
		Participants: make([]ParticipantResponse, 0, len(d.Participants)),
	}
	for _, ln := range d.Lines {
		res.Lines = append(res.Lines, DetailLineResponse{
			MaterialID:   ln.MaterialID,
			MaterialName: ln.MaterialName,
			Quantity:     ln.Quantity,
		})
	}
	for _, p := range d.Participants {
		res.Participants = append(res.Participants, ParticipantResponse(p))
	}
	return res
}
