package app

import (
	"context"

	"classquiz-service/internal/config"
	"classquiz-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, name string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]string, error)
}

// AttemptStore holds transient per-student state: the active attempt and the
// session-scoped daily-bonus flag (in-memory, Redis, etc).
type AttemptStore interface {
	Get(ctx context.Context, studentID string) (domain.Attempt, bool, error)
	Put(ctx context.Context, studentID string, attempt domain.Attempt) error
	Delete(ctx context.Context, studentID string) error
	// ClaimDailyBonus reports whether this is the first claim in the current
	// session. The flag lives with the transient state so a re-established
	// session grants the bonus again.
	ClaimDailyBonus(ctx context.Context, studentID string) (bool, error)
}

// RosterStore is the durable record store: accounts, groups and the
// per-(student, quiz) progress ledger. Implementations must make
// RecordCorrectAnswer and CompleteAttempt all-or-nothing.
type RosterStore interface {
	Student(ctx context.Context, id string) (domain.Student, error)
	StudentByName(ctx context.Context, name string) (domain.Student, error)
	CreateStudent(ctx context.Context, s domain.Student) error
	Group(ctx context.Context, id string) (domain.Group, error)
	CreateGroup(ctx context.Context, g domain.Group) error
	GroupMembers(ctx context.Context, groupID string) ([]domain.Student, error)
	AssignGroup(ctx context.Context, studentID, groupID string) error
	SetNemesis(ctx context.Context, studentID string, nemesisID *string) error
	AwardXP(ctx context.Context, studentID string, amount int) error

	Progress(ctx context.Context, studentID, quizName string) (domain.Progress, bool, error)
	EnsureProgress(ctx context.Context, studentID, quizName string) error
	// RecordCorrectAnswer applies one scored correct answer: the student's XP
	// balance and the ledger's XPEarned move together in one transaction.
	RecordCorrectAnswer(ctx context.Context, studentID, quizName string, xp int) error
	// CompleteAttempt finishes a scored attempt in one transaction: the final
	// answer's XP (zero if it was wrong), Completed=true and the transcript.
	CompleteAttempt(ctx context.Context, studentID, quizName string, finalXP int, transcript []domain.AnswerRecord) error
}

// QuizService drives the attempt state machine: starting quizzes, advancing
// question by question across independent requests, and committing results to
// the progress ledger.
type QuizService struct {
	quizzes  QuizRepository
	attempts AttemptStore
	roster   RosterStore
	scoring  config.Scoring
	boards   *LeaderboardService
}

func NewQuizService(quizzes QuizRepository, attempts AttemptStore, roster RosterStore, scoring config.Scoring, boards *LeaderboardService) *QuizService {
	return &QuizService{quizzes: quizzes, attempts: attempts, roster: roster, scoring: scoring, boards: boards}
}

// ListQuizzes enumerates available quizzes with the derived maximum XP.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	names, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.QuizSummary, 0, len(names))
	for _, name := range names {
		quiz, err := s.quizzes.GetQuiz(ctx, name)
		if err != nil {
			// A listing entry that no longer loads is skipped, not fatal.
			continue
		}
		summaries = append(summaries, domain.QuizSummary{
			Name:          name,
			Title:         quiz.Title,
			QuestionCount: len(quiz.Questions),
			MaxXP:         len(quiz.Questions) * s.scoring.XPPerCorrect,
		})
	}
	return summaries, nil
}

// StartAttempt resets the student's transient attempt and returns the first
// question. Any prior unfinished attempt is discarded unconditionally. A
// scored start against an already completed quiz returns ErrQuizCompleted so
// the caller can redirect to the completion view; nothing is mutated.
func (s *QuizService) StartAttempt(ctx context.Context, studentID, quizName string, practice bool) (domain.Question, int, error) {
	student, err := s.roster.Student(ctx, studentID)
	if err != nil {
		return domain.Question{}, 0, err
	}
	if !student.Role.CanTakeQuizzes() {
		return domain.Question{}, 0, domain.ErrRoleDenied
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizName)
	if err != nil {
		return domain.Question{}, 0, err
	}
	if len(quiz.Questions) == 0 {
		return domain.Question{}, 0, domain.ErrQuizNotFound
	}

	if !practice {
		if progress, ok, err := s.roster.Progress(ctx, studentID, quizName); err != nil {
			return domain.Question{}, 0, err
		} else if ok && progress.Completed {
			return domain.Question{}, 0, domain.ErrQuizCompleted
		}
		// Ledger rows are created lazily on the first scored start; practice
		// attempts never touch the ledger.
		if err := s.roster.EnsureProgress(ctx, studentID, quizName); err != nil {
			return domain.Question{}, 0, err
		}
	}

	attempt := domain.Attempt{QuizName: quizName, Practice: practice}
	if err := s.attempts.Put(ctx, studentID, attempt); err != nil {
		return domain.Question{}, 0, err
	}
	return quiz.Questions[0], len(quiz.Questions), nil
}

// QuestionAt returns the question at index, or done=true when the index is at
// or past the end of the quiz (out-of-range access normalizes to the
// completed view rather than erroring).
func (s *QuizService) QuestionAt(ctx context.Context, quizName string, index int) (domain.Question, bool, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizName)
	if err != nil {
		return domain.Question{}, false, err
	}
	if index < 0 || index >= len(quiz.Questions) {
		return domain.Question{}, true, nil
	}
	return quiz.Questions[index], false, nil
}

// SubmitAnswer evaluates the answer to question index and advances the
// attempt. Scored correct answers award XP immediately, not at completion.
// Answering the final question freezes the transcript into the ledger (scored
// mode) and discards the transient attempt in both modes.
func (s *QuizService) SubmitAnswer(ctx context.Context, studentID, quizName string, index int, answer string) (domain.Feedback, error) {
	student, err := s.roster.Student(ctx, studentID)
	if err != nil {
		return domain.Feedback{}, err
	}
	if !student.Role.CanTakeQuizzes() {
		return domain.Feedback{}, domain.ErrRoleDenied
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizName)
	if err != nil {
		return domain.Feedback{}, err
	}

	attempt, ok, err := s.attempts.Get(ctx, studentID)
	if err != nil {
		return domain.Feedback{}, err
	}
	if !ok || attempt.QuizName != quizName {
		return domain.Feedback{}, domain.ErrNoActiveAttempt
	}
	if index != len(attempt.Answers) || index >= len(quiz.Questions) {
		return domain.Feedback{}, domain.ErrAnswerOutOfStep
	}

	question := quiz.Questions[index]
	correct := EvaluateAnswer(answer, question.Answer)
	attempt.Answers = append(attempt.Answers, domain.AnswerRecord{
		Question:  question.Text,
		Submitted: answer,
		Expected:  question.Answer,
		Correct:   correct,
	})

	last := index == len(quiz.Questions)-1
	scored := !attempt.Practice

	if last {
		if scored {
			finalXP := 0
			if correct {
				finalXP = s.scoring.XPPerCorrect
			}
			if err := s.roster.CompleteAttempt(ctx, studentID, quizName, finalXP, attempt.Answers); err != nil {
				return domain.Feedback{}, err
			}
			if correct {
				s.boards.publishGroup(ctx, student.GroupID)
			}
		}
		if err := s.attempts.Delete(ctx, studentID); err != nil {
			return domain.Feedback{}, err
		}
	} else {
		if scored && correct {
			if err := s.roster.RecordCorrectAnswer(ctx, studentID, quizName, s.scoring.XPPerCorrect); err != nil {
				return domain.Feedback{}, err
			}
			s.boards.publishGroup(ctx, student.GroupID)
		}
		if err := s.attempts.Put(ctx, studentID, attempt); err != nil {
			return domain.Feedback{}, err
		}
	}

	return domain.Feedback{
		Correct:   correct,
		Expected:  question.Answer,
		Done:      last,
		NextIndex: index + 1,
	}, nil
}

// CompletionSummary reads the ledger entry for the completion view. It never
// mutates, so re-requesting it for a completed quiz is idempotent.
func (s *QuizService) CompletionSummary(ctx context.Context, studentID, quizName string) (domain.Progress, error) {
	progress, ok, err := s.roster.Progress(ctx, studentID, quizName)
	if err != nil {
		return domain.Progress{}, err
	}
	if !ok {
		return domain.Progress{}, domain.ErrNoActiveAttempt
	}
	return progress, nil
}
