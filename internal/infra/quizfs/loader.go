// Package quizfs loads quiz definitions from a folder of JSON files, one
// quiz per file, named {quizName}.json.
package quizfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"classquiz-service/internal/domain"
)

//go:embed quiz.schema.json
var quizSchemaJSON []byte

// Loader reads quizzes from dir and validates each against the quiz schema
// before handing it to the engine. A file that is missing, unreadable or
// fails validation resolves to ErrQuizNotFound, never a partial quiz.
type Loader struct {
	dir    string
	schema *jsonschema.Schema
}

func NewLoader(dir string) (*Loader, error) {
	var parsed any
	if err := json.Unmarshal(quizSchemaJSON, &parsed); err != nil {
		return nil, fmt.Errorf("parse quiz schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema://quiz.json", parsed); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("schema://quiz.json")
	if err != nil {
		return nil, fmt.Errorf("compile quiz schema: %w", err)
	}
	return &Loader{dir: dir, schema: schema}, nil
}

func (l *Loader) LoadQuiz(_ context.Context, name string) (domain.Quiz, error) {
	// Quiz names address files; anything that walks the tree is rejected.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	raw, err := os.ReadFile(filepath.Join(l.dir, name+".json"))
	if err != nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err := l.schema.Validate(parsed); err != nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}

	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (l *Loader) ListQuizzes(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}
