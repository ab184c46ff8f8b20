package memstore

import (
	"LABO-backend/internal/catalog"
	"LABO-backend/internal/loan_mgmt/inventory"
)

// AddEntity creates an active career, subject, teacher or practice and returns
// its id. parent is the career of a subject or the subject of a practice.
func (s *Store) AddEntity(kind catalog.EntityKind, name string, parent *int64) int64 {
	var id int64
	_ = s.update(func(st *state) error {
		st.nextEntity++
		id = st.nextEntity
		st.entities[kind][id] = catalog.Entity{Kind: kind, ID: id, Name: name, Active: true, ParentID: parent}
		return nil
	})
	return id
}

func (s *Store) AddMaterial(name, category string, qty int) int64 {
	var id int64
	_ = s.update(func(st *state) error {
		st.nextMaterial++
		id = st.nextMaterial
		st.materials[id] = inventory.Material{ID: id, Name: name, Category: category, AvailableQuantity: qty, Active: true}
		return nil
	})
	return id
}

func (s *Store) SetMaterialActive(id int64, active bool) {
	_ = s.update(func(st *state) error {
		if m, ok := st.materials[id]; ok {
			m.Active = active
			st.materials[id] = m
		}
		return nil
	})
}

func (s *Store) AddRequirement(practiceID, materialID int64, qty int) {
	_ = s.update(func(st *state) error {
		st.requirements[practiceID] = append(st.requirements[practiceID], requirement{MaterialID: materialID, Quantity: qty})
		return nil
	})
}

// Seed loads the demo catalog used by the memory driver.
func (s *Store) Seed() {
	electronica := s.AddEntity(catalog.KindCareer, "Ingeniería Electrónica", nil)
	quimica := s.AddEntity(catalog.KindCareer, "Ingeniería Química", nil)

	circuitos := s.AddEntity(catalog.KindSubject, "Circuitos Eléctricos", &electronica)
	s.AddEntity(catalog.KindSubject, "Electrónica Digital", &electronica)
	analitica := s.AddEntity(catalog.KindSubject, "Química Analítica", &quimica)

	s.AddEntity(catalog.KindTeacher, "Dra. Ana Núñez", nil)
	s.AddEntity(catalog.KindTeacher, "Mtro. Luis Peña", nil)

	leyOhm := s.AddEntity(catalog.KindPractice, "Ley de Ohm", &circuitos)
	titulacion := s.AddEntity(catalog.KindPractice, "Titulación ácido-base", &analitica)

	multimetro := s.AddMaterial("Multímetro", "medición", 10)
	osciloscopio := s.AddMaterial("Osciloscopio", "medición", 4)
	fuente := s.AddMaterial("Fuente de poder", "alimentación", 6)
	bureta := s.AddMaterial("Bureta 50 ml", "vidriería", 12)
	matraz := s.AddMaterial("Matraz Erlenmeyer", "vidriería", 20)
	s.AddMaterial("Protoboard", "componentes", 25)

	s.AddRequirement(leyOhm, multimetro, 2)
	s.AddRequirement(leyOhm, fuente, 1)
	s.AddRequirement(leyOhm, osciloscopio, 1)
	s.AddRequirement(titulacion, bureta, 1)
	s.AddRequirement(titulacion, matraz, 3)
}
