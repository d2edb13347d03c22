package models

// StudentPosition is one student's class position for a term/year.
// Positions are sequential (standard ranking): tied averages keep their
// input order and still receive distinct positions.
type StudentPosition struct {
	StudentID     string  `json:"student_id"`
	Average       float64 `json:"average"`
	Position      int     `json:"position"`
	TotalStudents int     `json:"total_students"`
}

// ClassRanking is the full ordered ranking for a class/term/year.
type ClassRanking struct {
	ClassID       string            `json:"class_id"`
	Term          Term              `json:"term"`
	AcademicYear  string            `json:"academic_year"`
	TotalStudents int               `json:"total_students"`
	Positions     []StudentPosition `json:"positions"`
}
