package models

// ComponentID identifies a continuous-assessment component.
type ComponentID string

// The six fixed continuous-assessment components.
const (
	ComponentClassTest1 ComponentID = "classTest1"
	ComponentClassTest2 ComponentID = "classTest2"
	ComponentQuiz       ComponentID = "quiz"
	ComponentHomework   ComponentID = "homework"
	ComponentProject    ComponentID = "project"
	ComponentAttendance ComponentID = "attendance"
)

// AssessmentComponent describes one weighted component of continuous assessment.
type AssessmentComponent struct {
	ID       ComponentID `json:"id"`
	Name     string      `json:"name"`
	Weight   float64     `json:"weight"`
	MaxScore float64     `json:"max_score"`
}

// Score scales and bounds.
const (
	// TotalComponentWeight is the sum of all component weights.
	TotalComponentWeight = 100.0
	// ContinuousScale is the share of the final score carried by continuous assessment.
	ContinuousScale = 30.0
	// MaxExamScore is the share carried by the end-of-term examination.
	MaxExamScore = 70.0
	// MaxFinalScore bounds the combined final score.
	MaxFinalScore = 100
)

// Components returns the assessment component catalog in display order.
// The catalog is fixed; weights sum to TotalComponentWeight.
func Components() []AssessmentComponent {
	return []AssessmentComponent{
		{ID: ComponentClassTest1, Name: "Class Test 1", Weight: 15, MaxScore: 20},
		{ID: ComponentClassTest2, Name: "Class Test 2", Weight: 15, MaxScore: 20},
		{ID: ComponentQuiz, Name: "Quiz", Weight: 20, MaxScore: 20},
		{ID: ComponentHomework, Name: "Homework", Weight: 20, MaxScore: 20},
		{ID: ComponentProject, Name: "Project", Weight: 20, MaxScore: 20},
		{ID: ComponentAttendance, Name: "Attendance", Weight: 10, MaxScore: 10},
	}
}

// ComponentByID looks up a catalog component.
func ComponentByID(id ComponentID) (AssessmentComponent, bool) {
	for _, comp := range Components() {
		if comp.ID == id {
			return comp, true
		}
	}
	return AssessmentComponent{}, false
}

// Term identifies one of the three school terms in an academic year.
type Term string

const (
	TermFirst  Term = "term1"
	TermSecond Term = "term2"
	TermThird  Term = "term3"
)

// Valid reports whether the term is one of the three known terms.
func (t Term) Valid() bool {
	switch t {
	case TermFirst, TermSecond, TermThird:
		return true
	}
	return false
}

// LetterGrade is a classified grade band.
type LetterGrade string

const (
	GradeA LetterGrade = "A"
	GradeB LetterGrade = "B"
	GradeC LetterGrade = "C"
	GradeD LetterGrade = "D"
	GradeE LetterGrade = "E"
	GradeF LetterGrade = "F"
)
