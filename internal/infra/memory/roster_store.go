package memory

import (
	"context"
	"sync"

	"classquiz-service/internal/domain"
)

// RosterStore is an in-memory implementation of app.RosterStore, used in
// tests and when no Postgres is configured. A single mutex makes the combined
// XP-plus-ledger writes atomic.
type RosterStore struct {
	mu       sync.Mutex
	students map[string]domain.Student
	groups   map[string]domain.Group
	progress map[string]map[string]domain.Progress // studentID -> quizName
}

func NewRosterStore() *RosterStore {
	return &RosterStore{
		students: make(map[string]domain.Student),
		groups:   make(map[string]domain.Group),
		progress: make(map[string]map[string]domain.Progress),
	}
}

func (s *RosterStore) Student(_ context.Context, id string) (domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[id]
	if !ok {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	return student, nil
}

func (s *RosterStore) StudentByName(_ context.Context, name string) (domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, student := range s.students {
		if student.Name == name {
			return student, nil
		}
	}
	return domain.Student{}, domain.ErrStudentNotFound
}

func (s *RosterStore) CreateStudent(_ context.Context, student domain.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[student.ID] = student
	return nil
}

func (s *RosterStore) Group(_ context.Context, id string) (domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[id]
	if !ok {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	return group, nil
}

func (s *RosterStore) CreateGroup(_ context.Context, group domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.ID] = group
	return nil
}

func (s *RosterStore) GroupMembers(_ context.Context, groupID string) ([]domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]domain.Student, 0)
	for _, student := range s.students {
		if student.GroupID != nil && *student.GroupID == groupID {
			members = append(members, student)
		}
	}
	return members, nil
}

func (s *RosterStore) AssignGroup(_ context.Context, studentID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[studentID]
	if !ok {
		return domain.ErrStudentNotFound
	}
	student.GroupID = &groupID
	// Moving groups breaks nemesis links in both directions.
	student.NemesisID = nil
	s.students[studentID] = student
	for id, other := range s.students {
		if other.NemesisID != nil && *other.NemesisID == studentID {
			if other.GroupID == nil || *other.GroupID != groupID {
				other.NemesisID = nil
				s.students[id] = other
			}
		}
	}
	return nil
}

func (s *RosterStore) SetNemesis(_ context.Context, studentID string, nemesisID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[studentID]
	if !ok {
		return domain.ErrStudentNotFound
	}
	student.NemesisID = nemesisID
	s.students[studentID] = student
	return nil
}

func (s *RosterStore) AwardXP(_ context.Context, studentID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[studentID]
	if !ok {
		return domain.ErrStudentNotFound
	}
	student.XP += amount
	s.students[studentID] = student
	return nil
}

func (s *RosterStore) Progress(_ context.Context, studentID, quizName string) (domain.Progress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.progress[studentID][quizName]
	return entry, ok, nil
}

func (s *RosterStore) EnsureProgress(_ context.Context, studentID, quizName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress[studentID] == nil {
		s.progress[studentID] = make(map[string]domain.Progress)
	}
	if _, ok := s.progress[studentID][quizName]; !ok {
		s.progress[studentID][quizName] = domain.Progress{StudentID: studentID, QuizName: quizName}
	}
	return nil
}

func (s *RosterStore) RecordCorrectAnswer(_ context.Context, studentID, quizName string, xp int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[studentID]
	if !ok {
		return domain.ErrStudentNotFound
	}
	entry, ok := s.progress[studentID][quizName]
	if !ok {
		return domain.ErrNoActiveAttempt
	}
	student.XP += xp
	entry.XPEarned += xp
	s.students[studentID] = student
	s.progress[studentID][quizName] = entry
	return nil
}

func (s *RosterStore) CompleteAttempt(_ context.Context, studentID, quizName string, finalXP int, transcript []domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[studentID]
	if !ok {
		return domain.ErrStudentNotFound
	}
	entry, ok := s.progress[studentID][quizName]
	if !ok {
		return domain.ErrNoActiveAttempt
	}
	student.XP += finalXP
	entry.XPEarned += finalXP
	entry.Completed = true
	entry.Transcript = append([]domain.AnswerRecord(nil), transcript...)
	s.students[studentID] = student
	s.progress[studentID][quizName] = entry
	return nil
}
