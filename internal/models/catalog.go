package models

// The class/subject catalog and student directory are owned by the
// surrounding portal. This service reads them to resolve required subjects,
// display names and class membership.

// RequiredSubject is one subject a class must have results for before a
// student's report is considered complete.
type RequiredSubject struct {
	SubjectID   string `db:"subject_id" json:"subject_id"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// ClassStudent is a student enrolled in a class for an academic year.
type ClassStudent struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
}
