package session

import (
	"math/rand"
	"sync"
	"time"

	"mediwise-quiz-service/internal/domain"
)

// Mode selects the question ordering for a session.
type Mode int

const (
	// ModeSequential presents questions in bank order.
	ModeSequential Mode = iota
	// ModeRandomized presents questions in a uniformly shuffled order.
	ModeRandomized
)

// ParseMode maps the wire-level mode string onto a Mode.
func ParseMode(raw string) (Mode, bool) {
	switch raw {
	case "", "sequential":
		return ModeSequential, true
	case "randomized", "random":
		return ModeRandomized, true
	}
	return ModeSequential, false
}

func (m Mode) String() string {
	if m == ModeRandomized {
		return "randomized"
	}
	return "sequential"
}

// Status is the derived display state of one question, recomputed on every
// call so it can never go stale against the underlying response state.
type Status int

const (
	StatusUnanswered Status = iota
	StatusAnswered          // chosen but not yet revealed
	StatusCorrect
	StatusIncorrect
)

func (s Status) String() string {
	switch s {
	case StatusAnswered:
		return "answered"
	case StatusCorrect:
		return "correct"
	case StatusIncorrect:
		return "incorrect"
	}
	return "unanswered"
}

// Session owns the state of a single quiz attempt: the question order, the
// cursor, unlocked responses and the set of revealed (locked) questions.
//
// Every mutation validates its preconditions before writing anything, so a
// failed operation leaves the session untouched. The mutex exists because
// transport goroutines reach sessions concurrently; the semantics are still
// single-writer.
type Session struct {
	mu        sync.Mutex
	bank      *domain.Bank
	mode      Mode
	order     []int
	pos       int
	responses map[string]string
	revealed  map[string]struct{}
	startedAt time.Time
	finished  time.Time
	now       func() time.Time
	rnd       *rand.Rand
}

// New creates an unstarted session.
func New() *Session {
	return NewWithClock(time.Now)
}

// NewWithClock allows deterministic timestamps in tests.
func NewWithClock(now func() time.Time) *Session {
	return &Session{
		now: now,
		rnd: rand.New(rand.NewSource(now().UnixNano())),
	}
}

// Start begins a fresh attempt over bank: it fixes the question order for the
// session's duration, resets the cursor and clears all answer state. Starting
// an already-started session restarts it.
func (s *Session) Start(bank *domain.Bank, mode Mode) error {
	if bank == nil || bank.Size() == 0 {
		return domain.ErrEmptyBank
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == ModeRandomized {
		s.order = RandomOrder(bank.Size(), s.rnd)
	} else {
		s.order = SequentialOrder(bank.Size())
	}
	s.bank = bank
	s.mode = mode
	s.pos = 0
	s.responses = make(map[string]string, bank.Size())
	s.revealed = make(map[string]struct{}, bank.Size())
	s.startedAt = s.now()
	s.finished = time.Time{}
	return nil
}

// CurrentQuestion returns the question under the cursor.
func (s *Session) CurrentQuestion() (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() (domain.Question, error) {
	if s.bank == nil {
		return domain.Question{}, domain.ErrNotStarted
	}
	return s.bank.Get(s.order[s.pos])
}

// ChooseOption records key as the response for the current question. Changing
// one's mind is allowed until the question is revealed; after that the answer
// is locked and ErrAlreadyRevealed is returned without mutation.
func (s *Session) ChooseOption(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.currentLocked()
	if err != nil {
		return err
	}
	if _, locked := s.revealed[q.ID]; locked {
		return domain.ErrAlreadyRevealed
	}
	if !q.HasOption(key) {
		return domain.ErrInvalidOption
	}
	s.responses[q.ID] = key
	return nil
}

// ClearChoice removes the current question's response. Clearing a question
// with no response is a no-op; clearing a revealed question is an error.
func (s *Session) ClearChoice() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.currentLocked()
	if err != nil {
		return err
	}
	if _, locked := s.revealed[q.ID]; locked {
		return domain.ErrAlreadyRevealed
	}
	delete(s.responses, q.ID)
	return nil
}

// Submit locks in the current question's response and marks it revealed.
// Submitting an already-revealed question is a no-op, not an error, so a
// double-click cannot change what was recorded. The completion timestamp is
// set exactly once, on the submit that reveals the last-position question.
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.currentLocked()
	if err != nil {
		return err
	}
	if _, locked := s.revealed[q.ID]; locked {
		return nil
	}
	if _, answered := s.responses[q.ID]; !answered {
		return domain.ErrNoResponseSelected
	}
	s.revealed[q.ID] = struct{}{}
	if s.finished.IsZero() && s.finishedLocked() {
		s.finished = s.now()
	}
	return nil
}

// IsCorrect reports whether the recorded response for questionID matches the
// correct key. Unanswered questions are simply not correct.
func (s *Session) IsCorrect(questionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isCorrectLocked(questionID)
}

func (s *Session) isCorrectLocked(questionID string) (bool, error) {
	if s.bank == nil {
		return false, domain.ErrNotStarted
	}
	q, err := s.bank.FindByID(questionID)
	if err != nil {
		return false, err
	}
	return s.responses[questionID] == q.CorrectKey, nil
}

// Next advances the cursor. Navigation is deliberately permissive: moving
// forward does not require the current question to be revealed, so the
// session supports free review; reveal-gating is a presentation policy.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bank == nil {
		return domain.ErrNotStarted
	}
	if s.pos >= len(s.order)-1 {
		return domain.ErrAtLastQuestion
	}
	s.pos++
	return nil
}

// Previous moves the cursor back.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bank == nil {
		return domain.ErrNotStarted
	}
	if s.pos <= 0 {
		return domain.ErrAtFirstQuestion
	}
	s.pos--
	return nil
}

// JumpTo moves the cursor to an arbitrary position, for sidebar navigation
// and review of wrong answers.
func (s *Session) JumpTo(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bank == nil {
		return domain.ErrNotStarted
	}
	if position < 0 || position >= len(s.order) {
		return domain.ErrOutOfRange
	}
	s.pos = position
	return nil
}

// IsFinished reports whether the question at the last position of the order
// has been revealed.
func (s *Session) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedLocked()
}

func (s *Session) finishedLocked() bool {
	if s.bank == nil || len(s.order) == 0 {
		return false
	}
	last, err := s.bank.Get(s.order[len(s.order)-1])
	if err != nil {
		return false
	}
	_, revealed := s.revealed[last.ID]
	return revealed
}

// Score returns the number of revealed-and-correct questions and the total
// number of questions in the session.
func (s *Session) Score() (correct, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreLocked()
}

func (s *Session) scoreLocked() (correct, total int) {
	for id := range s.revealed {
		if ok, err := s.isCorrectLocked(id); err == nil && ok {
			correct++
		}
	}
	return correct, len(s.order)
}

// StatusOf computes the display state of the question at position.
func (s *Session) StatusOf(position int) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bank == nil {
		return StatusUnanswered, domain.ErrNotStarted
	}
	if position < 0 || position >= len(s.order) {
		return StatusUnanswered, domain.ErrOutOfRange
	}
	q, err := s.bank.Get(s.order[position])
	if err != nil {
		return StatusUnanswered, err
	}
	if _, revealed := s.revealed[q.ID]; revealed {
		if ok, _ := s.isCorrectLocked(q.ID); ok {
			return StatusCorrect, nil
		}
		return StatusIncorrect, nil
	}
	if _, answered := s.responses[q.ID]; answered {
		return StatusAnswered, nil
	}
	return StatusUnanswered, nil
}

// Position returns the cursor position within the session order.
func (s *Session) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Length returns the number of questions in the session order.
func (s *Session) Length() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Mode returns the ordering mode the session was started with.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Response returns the recorded option key for questionID, if any.
func (s *Session) Response(questionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.responses[questionID]
	return key, ok
}

// Revealed reports whether questionID has been submitted and locked.
func (s *Session) Revealed(questionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revealed[questionID]
	return ok
}

// StartedAt returns the session start time; zero if not started.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// FinishedAt returns the completion time; zero while in progress.
func (s *Session) FinishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}
