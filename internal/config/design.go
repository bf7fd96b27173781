package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/foldframe/pkg/engine"
)

// Evaluator turns design source into a design. *engine.Engine satisfies it.
type Evaluator interface {
	Evaluate(source string) (*engine.Design, []engine.EvalError, error)
}

// IsDocument reports whether path names a YAML document rather than a
// design program.
func IsDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadDesign reads a design from path. YAML documents are loaded with Load
// and validated; anything else is evaluated as a design program.
func LoadDesign(path string, ev Evaluator) (*engine.Design, error) {
	if IsDocument(path) {
		doc, err := Load(path)
		if err != nil {
			return nil, err
		}
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return doc.ToDesign(), nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read design: %w", err)
	}
	d, evalErrs, err := ev.Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = fmt.Errorf("%s: %w", path, e)
		}
		return nil, errors.Join(errs...)
	}
	return d, nil
}
