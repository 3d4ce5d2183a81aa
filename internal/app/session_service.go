package app

import (
	"context"

	"github.com/google/uuid"

	"mediwise-quiz-service/internal/domain"
	"mediwise-quiz-service/internal/session"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Put(sessionID string, s *session.Session)
	Get(sessionID string) (*session.Session, bool)
	Delete(sessionID string)
}

// BankRepository loads question bank content (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (*domain.Bank, error)
}

// QuestionView is the render-safe projection of the current question: the
// correct key and explanation stay server-side until the answer is revealed.
type QuestionView struct {
	Position   int             `json:"position"`
	Total      int             `json:"total"`
	QuestionID string          `json:"questionId"`
	Stem       string          `json:"stem"`
	Options    []domain.Option `json:"options"`
	ImageRef   string          `json:"imageRef,omitempty"`
	ChosenKey  string          `json:"chosenKey,omitempty"`
	Revealed   bool            `json:"revealed"`
}

// RevealView reports the outcome of a submitted answer.
type RevealView struct {
	QuestionID  string `json:"questionId"`
	ChosenKey   string `json:"chosenKey"`
	CorrectKey  string `json:"correctKey"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
	Finished    bool   `json:"finished"`
}

// ProgressView drives sidebar/progress indicators.
type ProgressView struct {
	Position     int      `json:"position"`
	Total        int      `json:"total"`
	Statuses     []string `json:"statuses"`
	CorrectCount int      `json:"correctCount"`
	Finished     bool     `json:"finished"`
}

// SessionService contains the quiz attempt use cases: it resolves banks,
// owns session identity, and delegates all answer/navigation semantics to
// the session state machine.
type SessionService struct {
	sessions SessionRepository
	banks    BankRepository
	newID    func() string
}

func NewSessionService(store SessionRepository, banks BankRepository) *SessionService {
	return &SessionService{sessions: store, banks: banks, newID: uuid.NewString}
}

// Start creates a session over the named bank and returns its ID.
func (s *SessionService) Start(ctx context.Context, bankID string, mode session.Mode) (string, error) {
	bank, err := s.banks.GetBank(ctx, bankID)
	if err != nil {
		return "", err
	}

	sess := session.New()
	if err := sess.Start(bank, mode); err != nil {
		return "", err
	}
	id := s.newID()
	s.sessions.Put(id, sess)
	return id, nil
}

// Current returns the view of the question under the cursor.
func (s *SessionService) Current(sessionID string) (QuestionView, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return QuestionView{}, domain.ErrSessionNotFound
	}
	return questionView(sess)
}

// Choose records an option for the current question.
func (s *SessionService) Choose(sessionID, key string) error {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return sess.ChooseOption(key)
}

// Clear removes the current question's unlocked response.
func (s *SessionService) Clear(sessionID string) error {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return sess.ClearChoice()
}

// Submit locks in the current answer and returns the reveal outcome.
func (s *SessionService) Submit(sessionID string) (RevealView, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return RevealView{}, domain.ErrSessionNotFound
	}
	if err := sess.Submit(); err != nil {
		return RevealView{}, err
	}

	q, err := sess.CurrentQuestion()
	if err != nil {
		return RevealView{}, err
	}
	chosen, _ := sess.Response(q.ID)
	correct, err := sess.IsCorrect(q.ID)
	if err != nil {
		return RevealView{}, err
	}
	return RevealView{
		QuestionID:  q.ID,
		ChosenKey:   chosen,
		CorrectKey:  q.CorrectKey,
		Correct:     correct,
		Explanation: q.Explanation,
		Finished:    sess.IsFinished(),
	}, nil
}

// Next advances the cursor.
func (s *SessionService) Next(sessionID string) (QuestionView, error) {
	return s.navigate(sessionID, (*session.Session).Next)
}

// Previous moves the cursor back.
func (s *SessionService) Previous(sessionID string) (QuestionView, error) {
	return s.navigate(sessionID, (*session.Session).Previous)
}

func (s *SessionService) navigate(sessionID string, move func(*session.Session) error) (QuestionView, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return QuestionView{}, domain.ErrSessionNotFound
	}
	if err := move(sess); err != nil {
		return QuestionView{}, err
	}
	return questionView(sess)
}

// Jump moves the cursor to an arbitrary position.
func (s *SessionService) Jump(sessionID string, position int) (QuestionView, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return QuestionView{}, domain.ErrSessionNotFound
	}
	if err := sess.JumpTo(position); err != nil {
		return QuestionView{}, err
	}
	return questionView(sess)
}

// Progress projects per-question statuses and the running score.
func (s *SessionService) Progress(sessionID string) (ProgressView, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return ProgressView{}, domain.ErrSessionNotFound
	}

	total := sess.Length()
	statuses := make([]string, total)
	for pos := 0; pos < total; pos++ {
		status, err := sess.StatusOf(pos)
		if err != nil {
			return ProgressView{}, err
		}
		statuses[pos] = status.String()
	}
	correct, _ := sess.Score()
	return ProgressView{
		Position:     sess.Position(),
		Total:        total,
		Statuses:     statuses,
		CorrectCount: correct,
		Finished:     sess.IsFinished(),
	}, nil
}

// Results aggregates the session outcome; callable mid-attempt.
func (s *SessionService) Results(sessionID string) (session.Summary, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return session.Summary{}, domain.ErrSessionNotFound
	}
	return sess.Results()
}

// End discards the session; attempts are never persisted across connections.
func (s *SessionService) End(sessionID string) {
	s.sessions.Delete(sessionID)
}

func questionView(sess *session.Session) (QuestionView, error) {
	q, err := sess.CurrentQuestion()
	if err != nil {
		return QuestionView{}, err
	}
	chosen, _ := sess.Response(q.ID)
	return QuestionView{
		Position:   sess.Position(),
		Total:      sess.Length(),
		QuestionID: q.ID,
		Stem:       q.Stem,
		Options:    q.Options,
		ImageRef:   q.ImageRef,
		ChosenKey:  chosen,
		Revealed:   sess.Revealed(q.ID),
	}, nil
}
