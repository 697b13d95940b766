package app

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"classquiz-service/internal/domain"
)

// RosterService covers the teacher-role administration: creating student
// accounts and groups and moving students between groups.
type RosterService struct {
	roster RosterStore
}

func NewRosterService(roster RosterStore) *RosterService {
	return &RosterService{roster: roster}
}

// Lookup resolves an account by id.
func (s *RosterService) Lookup(ctx context.Context, id string) (domain.Student, error) {
	return s.roster.Student(ctx, id)
}

// Authenticate resolves an account by name and checks its password.
func (s *RosterService) Authenticate(ctx context.Context, name, password string) (domain.Student, error) {
	account, err := s.roster.StudentByName(ctx, name)
	if err != nil {
		return domain.Student{}, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return domain.Student{}, domain.ErrInvalidCredentials
	}
	return account, nil
}

// CreateStudent creates a student account. Empty name or password is
// rejected before anything is written.
func (s *RosterService) CreateStudent(ctx context.Context, actor domain.Student, name, password string, groupID *string) (domain.Student, error) {
	if !actor.Role.CanManageRoster() {
		return domain.Student{}, domain.ErrRoleDenied
	}
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return domain.Student{}, domain.ErrInvalidCredentials
	}
	if groupID != nil {
		if _, err := s.roster.Group(ctx, *groupID); err != nil {
			return domain.Student{}, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Student{}, err
	}
	student := domain.Student{
		ID:           uuid.NewString(),
		Name:         name,
		PasswordHash: string(hash),
		Role:         domain.RoleStudent,
		GroupID:      groupID,
	}
	if err := s.roster.CreateStudent(ctx, student); err != nil {
		return domain.Student{}, err
	}
	return student, nil
}

// CreateGroup creates a named group.
func (s *RosterService) CreateGroup(ctx context.Context, actor domain.Student, name string) (domain.Group, error) {
	if !actor.Role.CanManageRoster() {
		return domain.Group{}, domain.ErrRoleDenied
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	group := domain.Group{ID: uuid.NewString(), Name: name}
	if err := s.roster.CreateGroup(ctx, group); err != nil {
		return domain.Group{}, err
	}
	return group, nil
}

// AssignGroup moves a student into a group. The store clears any nemesis link
// the move would break, so the same-group invariant holds.
func (s *RosterService) AssignGroup(ctx context.Context, actor domain.Student, studentID, groupID string) error {
	if !actor.Role.CanManageRoster() {
		return domain.ErrRoleDenied
	}
	if _, err := s.roster.Student(ctx, studentID); err != nil {
		return err
	}
	if _, err := s.roster.Group(ctx, groupID); err != nil {
		return err
	}
	return s.roster.AssignGroup(ctx, studentID, groupID)
}
