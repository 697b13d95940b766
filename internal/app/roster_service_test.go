package app_test

import (
	"context"
	"errors"
	"testing"

	"classquiz-service/internal/domain"
)

func TestCreateStudentRejectsEmptyFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	teacher, _ := f.store.Student(ctx, teacherID)

	if _, err := f.roster.CreateStudent(ctx, teacher, "  ", "pw", nil); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected empty name rejected, got %v", err)
	}
	if _, err := f.roster.CreateStudent(ctx, teacher, "Dana", "", nil); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected empty password rejected, got %v", err)
	}
	if _, err := f.store.StudentByName(ctx, "Dana"); !errors.Is(err, domain.ErrStudentNotFound) {
		t.Fatalf("expected nothing persisted on rejection")
	}
}

func TestCreateStudentRequiresTeacher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anna, _ := f.store.Student(ctx, annaID)

	if _, err := f.roster.CreateStudent(ctx, anna, "Dana", "pw", nil); !errors.Is(err, domain.ErrRoleDenied) {
		t.Fatalf("expected role denial, got %v", err)
	}
	if _, err := f.roster.CreateGroup(ctx, anna, "Class 7b"); !errors.Is(err, domain.ErrRoleDenied) {
		t.Fatalf("expected role denial, got %v", err)
	}
}

func TestCreateAndAuthenticateStudent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	teacher, _ := f.store.Student(ctx, teacherID)

	gid := groupID
	created, err := f.roster.CreateStudent(ctx, teacher, "Dana", "secret", &gid)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Role != domain.RoleStudent || created.GroupID == nil || *created.GroupID != groupID {
		t.Fatalf("unexpected account %+v", created)
	}

	account, err := f.roster.Authenticate(ctx, "Dana", "secret")
	if err != nil || account.ID != created.ID {
		t.Fatalf("authenticate: %+v err=%v", account, err)
	}
	if _, err := f.roster.Authenticate(ctx, "Dana", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected bad password rejected, got %v", err)
	}
	if _, err := f.roster.Authenticate(ctx, "Nobody", "secret"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected unknown name rejected, got %v", err)
	}
}

func TestAssignGroupClearsBrokenNemesisLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	teacher, _ := f.store.Student(ctx, teacherID)

	other, err := f.roster.CreateGroup(ctx, teacher, "Class 7b")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	if err := f.boards.SetNemesis(ctx, annaID, benID); err != nil {
		t.Fatalf("set nemesis: %v", err)
	}
	if err := f.boards.SetNemesis(ctx, benID, annaID); err != nil {
		t.Fatalf("set nemesis: %v", err)
	}

	// Moving Ben breaks both directions of the rivalry.
	if err := f.roster.AssignGroup(ctx, teacher, benID, other.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	anna, _ := f.store.Student(ctx, annaID)
	ben, _ := f.store.Student(ctx, benID)
	if anna.NemesisID != nil || ben.NemesisID != nil {
		t.Fatalf("expected nemesis links cleared, got anna=%v ben=%v", anna.NemesisID, ben.NemesisID)
	}
	if ben.GroupID == nil || *ben.GroupID != other.ID {
		t.Fatalf("expected Ben moved, got %v", ben.GroupID)
	}
}

func TestAssignGroupValidatesTargets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	teacher, _ := f.store.Student(ctx, teacherID)

	if err := f.roster.AssignGroup(ctx, teacher, "ghost", groupID); !errors.Is(err, domain.ErrStudentNotFound) {
		t.Fatalf("expected student not found, got %v", err)
	}
	if err := f.roster.AssignGroup(ctx, teacher, annaID, "nope"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Fatalf("expected group not found, got %v", err)
	}
}
