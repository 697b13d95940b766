package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"classquiz-service/internal/domain"
)

type studentRow struct {
	bun.BaseModel `bun:"table:students"`

	ID           string  `bun:"id,pk"`
	Name         string  `bun:"name,notnull"`
	PasswordHash string  `bun:"password_hash,notnull"`
	Role         string  `bun:"role,notnull"`
	XP           int     `bun:"xp,notnull"`
	GroupID      *string `bun:"group_id"`
	NemesisID    *string `bun:"nemesis_id"`
}

type groupRow struct {
	bun.BaseModel `bun:"table:groups"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name,notnull"`
}

type progressRow struct {
	bun.BaseModel `bun:"table:progress"`

	StudentID  string `bun:"student_id,pk"`
	QuizName   string `bun:"quiz_name,pk"`
	Completed  bool   `bun:"completed,notnull"`
	XPEarned   int    `bun:"xp_earned,notnull"`
	Transcript []byte `bun:"transcript,type:jsonb,nullzero"`
}

// RosterStore is the bun-backed implementation of app.RosterStore. The
// paired XP-plus-ledger writes run inside a single transaction.
type RosterStore struct {
	db *bun.DB
}

func NewRosterStore(db *bun.DB) *RosterStore {
	return &RosterStore{db: db}
}

func (s *RosterStore) Student(ctx context.Context, id string) (domain.Student, error) {
	var row studentRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	if err != nil {
		return domain.Student{}, fmt.Errorf("select student: %w", err)
	}
	return studentFromRow(row), nil
}

func (s *RosterStore) StudentByName(ctx context.Context, name string) (domain.Student, error) {
	var row studentRow
	err := s.db.NewSelect().Model(&row).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	if err != nil {
		return domain.Student{}, fmt.Errorf("select student by name: %w", err)
	}
	return studentFromRow(row), nil
}

func (s *RosterStore) CreateStudent(ctx context.Context, student domain.Student) error {
	row := studentRow{
		ID:           student.ID,
		Name:         student.Name,
		PasswordHash: student.PasswordHash,
		Role:         string(student.Role),
		XP:           student.XP,
		GroupID:      student.GroupID,
		NemesisID:    student.NemesisID,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

func (s *RosterStore) Group(ctx context.Context, id string) (domain.Group, error) {
	var row groupRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	if err != nil {
		return domain.Group{}, fmt.Errorf("select group: %w", err)
	}
	return domain.Group{ID: row.ID, Name: row.Name}, nil
}

func (s *RosterStore) CreateGroup(ctx context.Context, group domain.Group) error {
	row := groupRow{ID: group.ID, Name: group.Name}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (s *RosterStore) GroupMembers(ctx context.Context, groupID string) ([]domain.Student, error) {
	var rows []studentRow
	err := s.db.NewSelect().Model(&rows).Where("group_id = ?", groupID).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select group members: %w", err)
	}
	members := make([]domain.Student, 0, len(rows))
	for _, row := range rows {
		members = append(members, studentFromRow(row))
	}
	return members, nil
}

// AssignGroup moves the student and clears any nemesis link the move breaks,
// in both directions, within one transaction.
func (s *RosterStore) AssignGroup(ctx context.Context, studentID, groupID string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*studentRow)(nil)).
			Set("group_id = ?", groupID).
			Set("nemesis_id = NULL").
			Where("id = ?", studentID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("assign group: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrStudentNotFound
		}
		if _, err := tx.NewUpdate().Model((*studentRow)(nil)).
			Set("nemesis_id = NULL").
			Where("nemesis_id = ?", studentID).
			Where("group_id IS DISTINCT FROM ?", groupID).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear stale nemesis links: %w", err)
		}
		return nil
	})
}

func (s *RosterStore) SetNemesis(ctx context.Context, studentID string, nemesisID *string) error {
	res, err := s.db.NewUpdate().Model((*studentRow)(nil)).
		Set("nemesis_id = ?", nemesisID).
		Where("id = ?", studentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set nemesis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrStudentNotFound
	}
	return nil
}

func (s *RosterStore) AwardXP(ctx context.Context, studentID string, amount int) error {
	res, err := s.db.NewUpdate().Model((*studentRow)(nil)).
		Set("xp = xp + ?", amount).
		Where("id = ?", studentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("award xp: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrStudentNotFound
	}
	return nil
}

func (s *RosterStore) Progress(ctx context.Context, studentID, quizName string) (domain.Progress, bool, error) {
	var row progressRow
	err := s.db.NewSelect().Model(&row).
		Where("student_id = ?", studentID).
		Where("quiz_name = ?", quizName).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, fmt.Errorf("select progress: %w", err)
	}
	progress := domain.Progress{
		StudentID: row.StudentID,
		QuizName:  row.QuizName,
		Completed: row.Completed,
		XPEarned:  row.XPEarned,
	}
	if len(row.Transcript) > 0 {
		if err := json.Unmarshal(row.Transcript, &progress.Transcript); err != nil {
			return domain.Progress{}, false, fmt.Errorf("unmarshal transcript: %w", err)
		}
	}
	return progress, true, nil
}

func (s *RosterStore) EnsureProgress(ctx context.Context, studentID, quizName string) error {
	row := progressRow{StudentID: studentID, QuizName: quizName}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (student_id, quiz_name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ensure progress: %w", err)
	}
	return nil
}

func (s *RosterStore) RecordCorrectAnswer(ctx context.Context, studentID, quizName string, xp int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return applyAward(ctx, tx, studentID, quizName, xp)
	})
}

func (s *RosterStore) CompleteAttempt(ctx context.Context, studentID, quizName string, finalXP int, transcript []domain.AnswerRecord) error {
	raw, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if finalXP > 0 {
			if err := applyAward(ctx, tx, studentID, quizName, finalXP); err != nil {
				return err
			}
		}
		res, err := tx.NewUpdate().Model((*progressRow)(nil)).
			Set("completed = TRUE").
			Set("transcript = ?", string(raw)).
			Where("student_id = ?", studentID).
			Where("quiz_name = ?", quizName).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("complete attempt: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNoActiveAttempt
		}
		return nil
	})
}

func applyAward(ctx context.Context, tx bun.Tx, studentID, quizName string, xp int) error {
	res, err := tx.NewUpdate().Model((*studentRow)(nil)).
		Set("xp = xp + ?", xp).
		Where("id = ?", studentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("award xp: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrStudentNotFound
	}
	res, err = tx.NewUpdate().Model((*progressRow)(nil)).
		Set("xp_earned = xp_earned + ?", xp).
		Where("student_id = ?", studentID).
		Where("quiz_name = ?", quizName).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNoActiveAttempt
	}
	return nil
}

func studentFromRow(row studentRow) domain.Student {
	return domain.Student{
		ID:           row.ID,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		Role:         domain.Role(row.Role),
		XP:           row.XP,
		GroupID:      row.GroupID,
		NemesisID:    row.NemesisID,
	}
}
