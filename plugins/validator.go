// plugins/validator.go
//
// Match validators can be supplied as plain .go files interpreted at
// startup, so a different matching rule does not require rebuilding the
// game. Each plugin file must define:
//
//	func MatchValidator(cards []int) bool
//
// The file is evaluated with yaegi against the standard library only.

package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const validatorFuncName = "MatchValidator"

// Validator is a match rule loaded from a plugin file.
type Validator struct {
	Fn   func(cards []int) bool
	Path string
}

// LoadValidatorDir evaluates every .go file in dir and returns the single
// validator they define. Zero or multiple validators is an error: the
// referee needs exactly one active rule.
func LoadValidatorDir(dir string) (*Validator, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, fmt.Errorf("plugin: validator directory is empty")
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" {
			continue
		}
		paths = append(paths, filepath.Join(trimmed, entry.Name()))
	}
	sort.Strings(paths)
	switch len(paths) {
	case 0:
		return nil, fmt.Errorf("plugin: no validator files in %s", trimmed)
	case 1:
		return LoadValidatorFile(paths[0])
	default:
		return nil, fmt.Errorf("plugin: %d validator files in %s, expected exactly one", len(paths), trimmed)
	}
}

// LoadValidatorFile interprets one plugin file and extracts its validator.
func LoadValidatorFile(path string) (*Validator, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return nil, fmt.Errorf("plugin: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("plugin: load stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return nil, fmt.Errorf("plugin: interpret %s: %w", path, err)
	}
	value, err := i.Eval(validatorFuncName)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s must define %s(cards []int) bool: %w", path, validatorFuncName, err)
	}
	fn, ok := value.Interface().(func([]int) bool)
	if !ok {
		return nil, fmt.Errorf("plugin: %s: %s has the wrong signature (want func([]int) bool)", path, validatorFuncName)
	}
	return &Validator{Fn: fn, Path: path}, nil
}
