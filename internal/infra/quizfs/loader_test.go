package quizfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"classquiz-service/internal/domain"
)

func TestLoadQuizFromDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "capitals.json", `{
		"title": "European Capitals",
		"questions": [
			{"text": "Capital of France?", "answer": "Paris"},
			{"text": "Capital of Italy?", "answer": "Rome"}
		]
	}`)

	loader := newLoader(t, dir)
	quiz, err := loader.LoadQuiz(context.Background(), "capitals")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if quiz.Title != "European Capitals" || len(quiz.Questions) != 2 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if quiz.Questions[1].Answer != "Rome" {
		t.Fatalf("expected question order preserved, got %+v", quiz.Questions)
	}
}

func TestMissingQuizIsNotFound(t *testing.T) {
	loader := newLoader(t, t.TempDir())
	if _, err := loader.LoadQuiz(context.Background(), "nope"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMalformedQuizIsNotFound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"title": "x"`)
	writeFile(t, dir, "wrong-shape.json", `{"title": "x", "questions": [{"text": "q"}]}`)

	loader := newLoader(t, dir)
	if _, err := loader.LoadQuiz(context.Background(), "broken"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected not found for invalid json, got %v", err)
	}
	if _, err := loader.LoadQuiz(context.Background(), "wrong-shape"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected not found for schema violation, got %v", err)
	}
}

func TestTraversalNamesRejected(t *testing.T) {
	loader := newLoader(t, t.TempDir())
	for _, name := range []string{"", "../etc/passwd", "a/b", ".hidden"} {
		if _, err := loader.LoadQuiz(context.Background(), name); err != domain.ErrQuizNotFound {
			t.Fatalf("expected not found for %q, got %v", name, err)
		}
	}
}

func TestListQuizzes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `{"title": "B", "questions": []}`)
	writeFile(t, dir, "a.json", `{"title": "A", "questions": []}`)
	writeFile(t, dir, "notes.txt", "ignored")

	loader := newLoader(t, dir)
	names, err := loader.ListQuizzes(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected names %v", names)
	}
}

func newLoader(t *testing.T, dir string) *Loader {
	t.Helper()
	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	return loader
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
