package services

import (
	"fmt"

	"quest-learning-system/models"
)

// XP scoring constants. Both rates are fixed and independent of problem
// difficulty so the accumulator needs no knowledge of problem content.
const (
	XPPerCorrectAnswer = 5 // MCQ: per correct answer
	XPPerPassedProgram = 5 // coding: per fully passing submission
)

// NormalizedSubmission is the graded unit the accumulator consumes: how many
// of the submission's units were correct, out of how many, and whether the
// submission was a coding program (all-or-nothing scoring) or an MCQ set
// (linear scoring).
type NormalizedSubmission struct {
	CorrectCount int
	Total        int
	Coding       bool
}

// EarnedXP applies the scoring rules. Coding submissions earn a fixed amount
// only when every test case passed — partial runs earn nothing, so XP cannot
// be farmed by resubmitting near-misses. MCQ submissions earn per correct
// answer regardless of the question count.
func (s NormalizedSubmission) EarnedXP() int {
	if s.Coding {
		if s.CorrectCount == s.Total {
			return XPPerPassedProgram
		}
		return 0
	}
	if s.CorrectCount < 0 {
		return 0
	}
	return s.CorrectCount * XPPerCorrectAnswer
}

// NormalizeCounts validates an already-graded (correct, total) pair as
// received on the submit endpoint.
func NormalizeCounts(correctCount, total int, coding bool) (NormalizedSubmission, error) {
	if total <= 0 {
		return NormalizedSubmission{}, fmt.Errorf("%w: total must be positive", ErrValidation)
	}
	if correctCount < 0 || correctCount > total {
		return NormalizedSubmission{}, fmt.Errorf("%w: correctCount out of range [0, %d]", ErrValidation, total)
	}
	return NormalizedSubmission{CorrectCount: correctCount, Total: total, Coding: coding}, nil
}

// NormalizeMCQ grades a set of answer selections against the authoritative
// answer key. Selections are matched by question index; unanswered questions
// count as wrong.
func NormalizeMCQ(answers []models.MCQAnswer, answerKey []string) (NormalizedSubmission, error) {
	if len(answerKey) == 0 {
		return NormalizedSubmission{}, fmt.Errorf("%w: answer key is empty, nothing to grade", ErrValidation)
	}
	correct := 0
	for _, a := range answers {
		if a.Index < 0 || a.Index >= len(answerKey) {
			continue
		}
		if a.Selected == answerKey[a.Index] {
			correct++
		}
	}
	return NormalizedSubmission{CorrectCount: correct, Total: len(answerKey)}, nil
}

// NormalizeJudgeResults converts the code judge's per-test-case verdict
// vector into a coding submission.
func NormalizeJudgeResults(results []TestResult) (NormalizedSubmission, error) {
	if len(results) == 0 {
		return NormalizedSubmission{}, fmt.Errorf("%w: no test cases were run, nothing to grade", ErrValidation)
	}
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	return NormalizedSubmission{CorrectCount: passed, Total: len(results), Coding: true}, nil
}
