package session

import (
	"time"

	"mediwise-quiz-service/internal/domain"
)

// IncorrectEntry describes one revealed-but-wrong question for review.
type IncorrectEntry struct {
	Position   int    `json:"position"`
	QuestionID string `json:"questionId"`
	ChosenKey  string `json:"chosenKey"`
	CorrectKey string `json:"correctKey"`
}

// Summary aggregates a session's outcome. It is a pure projection of session
// state and may be taken mid-attempt for a progress check.
type Summary struct {
	CorrectCount int              `json:"correctCount"`
	Total        int              `json:"total"`
	Percentage   float64          `json:"percentage"`
	Elapsed      time.Duration    `json:"elapsed"`
	Finished     bool             `json:"finished"`
	Incorrect    []IncorrectEntry `json:"incorrect"`
}

// Results summarizes the session: score, percentage, elapsed time and the
// revealed-but-incorrect questions in session order.
func (s *Session) Results() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bank == nil {
		return Summary{}, domain.ErrNotStarted
	}

	correct, total := s.scoreLocked()
	summary := Summary{
		CorrectCount: correct,
		Total:        total,
		Finished:     s.finishedLocked(),
		Incorrect:    []IncorrectEntry{},
	}
	if total > 0 {
		summary.Percentage = float64(correct) / float64(total) * 100
	}
	if !s.startedAt.IsZero() {
		end := s.finished
		if end.IsZero() {
			end = s.now()
		}
		summary.Elapsed = end.Sub(s.startedAt)
	}

	for pos, bankIdx := range s.order {
		q, err := s.bank.Get(bankIdx)
		if err != nil {
			return Summary{}, err
		}
		if _, revealed := s.revealed[q.ID]; !revealed {
			continue
		}
		chosen := s.responses[q.ID]
		if chosen == q.CorrectKey {
			continue
		}
		summary.Incorrect = append(summary.Incorrect, IncorrectEntry{
			Position:   pos,
			QuestionID: q.ID,
			ChosenKey:  chosen,
			CorrectKey: q.CorrectKey,
		})
	}
	return summary, nil
}
