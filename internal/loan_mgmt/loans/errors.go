package loans

import "LABO-backend/internal/platform/apierr"

var (
	ErrEmptyLineSet    = apierr.New(apierr.CodeInvalidArgument, "EMPTY_LINE_SET", "a loan needs at least one material line")
	ErrLoanNotFound    = apierr.New(apierr.CodeNotFound, "LOAN_NOT_FOUND", "loan not found")
	ErrAlreadyReturned = apierr.New(apierr.CodeConflict, "ALREADY_RETURNED", "loan already returned")
	ErrInvalidRange    = apierr.New(apierr.CodeInvalidArgument, "INVALID_RANGE", "date range must be from <= to, both YYYY-MM-DD")
)
