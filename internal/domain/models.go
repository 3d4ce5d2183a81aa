package domain

import "fmt"

// Option is one answer choice for a question. Keys are unique within a question
// and carry display order ("A".."E" in the stock content).
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question models an MCQ clinical vignette with exactly one correct option.
// Stem, Explanation and ImageRef are presentational payload; the session
// machinery only interprets ID, Options and CorrectKey.
type Question struct {
	ID          string   `json:"id"`
	Stem        string   `json:"stem"`
	Options     []Option `json:"options"`
	CorrectKey  string   `json:"correctKey"`
	Explanation string   `json:"explanation,omitempty"`
	ImageRef    string   `json:"imageRef,omitempty"`
}

// HasOption reports whether key is one of the question's option keys.
func (q Question) HasOption(key string) bool {
	for _, opt := range q.Options {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// Bank is a fixed, ordered collection of questions. Content is validated once
// at construction so malformed data surfaces at load time, not mid-session.
type Bank struct {
	id        string
	questions []Question
	index     map[string]int
}

// NewBank validates the question content and builds the lookup table.
func NewBank(id string, questions []Question) (*Bank, error) {
	index := make(map[string]int, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("bank %q: question %d has empty id", id, i)
		}
		if _, dup := index[q.ID]; dup {
			return nil, fmt.Errorf("bank %q: duplicate question id %q", id, q.ID)
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("bank %q: question %q has %d options, need at least 2", id, q.ID, len(q.Options))
		}
		seen := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			if _, dup := seen[opt.Key]; dup {
				return nil, fmt.Errorf("bank %q: question %q has duplicate option key %q", id, q.ID, opt.Key)
			}
			seen[opt.Key] = struct{}{}
		}
		if _, ok := seen[q.CorrectKey]; !ok {
			return nil, fmt.Errorf("bank %q: question %q correct key %q not among its options", id, q.ID, q.CorrectKey)
		}
		index[q.ID] = i
	}
	qs := make([]Question, len(questions))
	copy(qs, questions)
	return &Bank{id: id, questions: qs, index: index}, nil
}

// MustBank is NewBank for compile-time-known content; it panics on invalid data.
func MustBank(id string, questions []Question) *Bank {
	bank, err := NewBank(id, questions)
	if err != nil {
		panic(err)
	}
	return bank
}

// ID returns the bank identifier.
func (b *Bank) ID() string { return b.id }

// Size returns the number of questions in the bank.
func (b *Bank) Size() int { return len(b.questions) }

// Get returns the question at position in the bank's native order.
func (b *Bank) Get(position int) (Question, error) {
	if position < 0 || position >= len(b.questions) {
		return Question{}, ErrOutOfRange
	}
	return b.questions[position], nil
}

// FindByID returns the question with the given id.
func (b *Bank) FindByID(id string) (Question, error) {
	i, ok := b.index[id]
	if !ok {
		return Question{}, ErrQuestionNotFound
	}
	return b.questions[i], nil
}

// Questions returns a copy of the bank content, in native order.
func (b *Bank) Questions() []Question {
	qs := make([]Question, len(b.questions))
	copy(qs, b.questions)
	return qs
}
