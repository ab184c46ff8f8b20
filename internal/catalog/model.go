package catalog

import (
	"context"
	"fmt"
	"strings"

	"LABO-backend/internal/loan_mgmt/inventory"
	"LABO-backend/internal/platform/apierr"
)

// EntityKind is the closed set of catalog entities. It is parsed once at the
// HTTP boundary; nothing below switches on raw strings.
type EntityKind int

const (
	KindCareer EntityKind = iota + 1
	KindSubject
	KindTeacher
	KindPractice
	KindMaterial
)

var ErrUnknownKind = apierr.New(apierr.CodeNotFound, "UNKNOWN_KIND", "unknown catalog kind")

var ErrPracticeNotFound = apierr.New(apierr.CodeNotFound, "PRACTICE_NOT_FOUND", "practice not found")

var ErrEntityNotFound = apierr.New(apierr.CodeNotFound, "ENTITY_NOT_FOUND", "catalog entry not found")

// ParseEntityKind accepts the singular or plural form.
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "career", "careers":
		return KindCareer, nil
	case "subject", "subjects":
		return KindSubject, nil
	case "teacher", "teachers":
		return KindTeacher, nil
	case "practice", "practices":
		return KindPractice, nil
	case "material", "materials":
		return KindMaterial, nil
	}
	return 0, ErrUnknownKind
}

func (k EntityKind) String() string {
	switch k {
	case KindCareer:
		return "career"
	case KindSubject:
		return "subject"
	case KindTeacher:
		return "teacher"
	case KindPractice:
		return "practice"
	case KindMaterial:
		return "material"
	}
	return fmt.Sprintf("EntityKind(%d)", int(k))
}

// table describes where a kind lives. parent is empty for top-level kinds.
type table struct {
	name   string
	id     string
	parent string
}

func (k EntityKind) table() (table, bool) {
	switch k {
	case KindCareer:
		return table{name: "careers", id: "career_id"}, true
	case KindSubject:
		return table{name: "subjects", id: "subject_id", parent: "career_id"}, true
	case KindTeacher:
		return table{name: "teachers", id: "teacher_id"}, true
	case KindPractice:
		return table{name: "practices", id: "practice_id", parent: "subject_id"}, true
	case KindMaterial:
		return table{name: "materials", id: "material_id"}, true
	}
	return table{}, false
}

// Entity is a catalog row as shown in loan-form pickers. ParentID is the career
// of a subject or the subject of a practice.
type Entity struct {
	Kind     EntityKind
	ID       int64
	Name     string
	Active   bool
	ParentID *int64
}

// Requirement is one line of a practice's material template. It is advisory:
// loans are free to deviate from it.
type Requirement struct {
	MaterialID   int64
	MaterialName string
	Quantity     int
	Available    int
}

// Reader is the read side the ledger consumes.
type Reader interface {
	ListActiveMaterials(ctx context.Context) ([]inventory.Material, error)
	MaterialExists(ctx context.Context, id int64) (bool, error)
	PracticeRequirements(ctx context.Context, practiceID int64) ([]Requirement, error)
	ListEntities(ctx context.Context, kind EntityKind, activeOnly bool) ([]Entity, error)
}
