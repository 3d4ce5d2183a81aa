package domain

import "errors"

var (
	// ErrEmptyBank is returned when a session is started against a bank with no questions.
	ErrEmptyBank = errors.New("question bank is empty")
	// ErrNotStarted is returned when session operations are invoked before Start.
	ErrNotStarted = errors.New("session not started")
	// ErrInvalidOption indicates a chosen option key is not part of the current question.
	ErrInvalidOption = errors.New("option not part of question")
	// ErrNoResponseSelected is returned when submitting a question without a chosen option.
	ErrNoResponseSelected = errors.New("no response selected")
	// ErrAlreadyRevealed is returned when changing an answer after it was locked in.
	ErrAlreadyRevealed = errors.New("answer already revealed")
	// ErrOutOfRange indicates a position outside the bank or session order.
	ErrOutOfRange = errors.New("position out of range")
	// ErrAtFirstQuestion is returned by backward navigation at the first question.
	ErrAtFirstQuestion = errors.New("already at first question")
	// ErrAtLastQuestion is returned by forward navigation at the last question.
	ErrAtLastQuestion = errors.New("already at last question")
	// ErrQuestionNotFound indicates a question ID is unknown to the bank.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrBankNotFound indicates the bank content could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrSessionNotFound is returned when a quiz session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
)
