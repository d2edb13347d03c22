package service

import (
	"fmt"
	"math"

	"github.com/mensah-dev/school-results-api/internal/models"
	appErrors "github.com/mensah-dev/school-results-api/pkg/errors"
)

// ComputeContinuousScore derives the continuous-assessment score on the 0..30
// scale from raw component scores. Each component contributes
// score/maxScore*100 weighted by its catalog weight; the weighted sum is
// divided by the total weight and scaled to 30. Missing components count as 0.
// The result is unrounded; rounding is a display concern.
func ComputeContinuousScore(scores map[models.ComponentID]float64) float64 {
	weightedSum := 0.0
	for _, comp := range models.Components() {
		raw := scores[comp.ID]
		percentage := raw / comp.MaxScore * 100
		weightedSum += percentage * comp.Weight
	}
	return weightedSum / models.TotalComponentWeight * models.ContinuousScale / 100
}

// ComputeFinalScore combines continuous and exam scores into the 0..100 final
// score, rounded to the nearest integer.
func ComputeFinalScore(continuousScore, examScore float64) int {
	final := int(math.Round(continuousScore + examScore))
	if final < 0 {
		return 0
	}
	if final > models.MaxFinalScore {
		return models.MaxFinalScore
	}
	return final
}

// Classify maps a final score to its letter grade and remark. Bands are
// inclusive on both ends and evaluated top-down.
func Classify(finalScore int) (models.LetterGrade, string) {
	switch {
	case finalScore >= 80:
		return models.GradeA, "Excellent"
	case finalScore >= 70:
		return models.GradeB, "Very Good"
	case finalScore >= 60:
		return models.GradeC, "Good"
	case finalScore >= 50:
		return models.GradeD, "Credit"
	case finalScore >= 40:
		return models.GradeE, "Pass"
	default:
		return models.GradeF, "Fail"
	}
}

// ValidateStudentScores checks raw component and exam scores against catalog
// limits. Out-of-range values are rejected, never clamped; every violation is
// reported so the caller can render field-level detail.
func ValidateStudentScores(studentID string, scores map[models.ComponentID]float64, examScore float64) []models.ScoreViolation {
	var violations []models.ScoreViolation
	for id, raw := range scores {
		comp, ok := models.ComponentByID(id)
		if !ok {
			violations = append(violations, models.ScoreViolation{
				StudentID: studentID,
				Component: string(id),
				Score:     raw,
				Limit:     0,
			})
			continue
		}
		if raw < 0 || raw > comp.MaxScore {
			violations = append(violations, models.ScoreViolation{
				StudentID: studentID,
				Component: string(comp.ID),
				Score:     raw,
				Limit:     comp.MaxScore,
			})
		}
	}
	if examScore < 0 || examScore > models.MaxExamScore {
		violations = append(violations, models.ScoreViolation{
			StudentID: studentID,
			Component: "examScore",
			Score:     examScore,
			Limit:     models.MaxExamScore,
		})
	}
	return violations
}

// BuildStudentGrade validates raw scores and derives the full StudentGrade
// (continuous score, final score, letter grade, remarks).
func BuildStudentGrade(studentID string, scores map[models.ComponentID]float64, examScore float64) (models.StudentGrade, error) {
	if violations := ValidateStudentScores(studentID, scores, examScore); len(violations) > 0 {
		msg := fmt.Sprintf("invalid scores for student %s", studentID)
		return models.StudentGrade{}, appErrors.Clone(appErrors.ErrValidation, msg).WithDetails(violations)
	}

	continuous := ComputeContinuousScore(scores)
	final := ComputeFinalScore(continuous, examScore)
	grade, remarks := Classify(final)

	copied := make(map[models.ComponentID]float64, len(scores))
	for id, raw := range scores {
		copied[id] = raw
	}

	return models.StudentGrade{
		ContinuousAssessment: copied,
		ExamScore:            examScore,
		ContinuousScore:      continuous,
		Score:                final,
		Grade:                grade,
		Remarks:              remarks,
	}, nil
}
