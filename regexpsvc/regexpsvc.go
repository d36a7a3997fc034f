// Package regexpsvc abstracts regular-expression compilation behind a
// small opaque-handle service: handles are compiled and released
// explicitly, and a host can swap in its own engine (a cache, a different
// regexp flavor, a WASM sandbox) without the filter package knowing the
// difference.
package regexpsvc

import (
	"regexp"
	"sync"
)

// Handle identifies a compiled pattern inside a Service. The zero Handle is
// never valid.
type Handle uint64

// Service compiles and evaluates regular expressions on behalf of filters
// that need more than a shortcut/substring check.
type Service interface {
	// Compile compiles pattern (already translated from shorthand syntax,
	// see the filter package's pattern-to-regexp conversion) and returns a
	// handle for later Test calls. matchCase selects case-sensitive
	// matching; when false, the Default service compiles the pattern
	// case-insensitively. The filter package lower-cases the text it
	// passes to Test itself when matchCase is false.
	Compile(pattern string, matchCase bool) (Handle, error)

	// Test reports whether text matches the pattern behind h.
	Test(h Handle, text string) bool

	// Release drops h. Subsequent Test calls with it are undefined; callers
	// must not call Release twice for the same handle.
	Release(h Handle)
}

type goRegexpService struct {
	mu      sync.Mutex
	next    Handle
	entries map[Handle]*regexp.Regexp
}

// Default returns a Service backed by the standard library's regexp engine
// (RE2 semantics), compiling eagerly on Compile rather than lazily on first
// Test; a host that wants lazy compilation can wrap this with its own
// Service implementation.
func Default() Service {
	return &goRegexpService{entries: make(map[Handle]*regexp.Regexp)}
}

func (s *goRegexpService) Compile(pattern string, matchCase bool) (Handle, error) {
	if !matchCase {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := s.next
	s.entries[h] = re

	return h, nil
}

func (s *goRegexpService) Test(h Handle, text string) bool {
	s.mu.Lock()
	re := s.entries[h]
	s.mu.Unlock()

	if re == nil {
		return false
	}

	return re.MatchString(text)
}

func (s *goRegexpService) Release(h Handle) {
	s.mu.Lock()
	delete(s.entries, h)
	s.mu.Unlock()
}
