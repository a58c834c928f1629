package extract

import (
	"fmt"
	"os"

	"github.com/patrickmn/go-cache"
)

// ConstantsLoader reads constants source files once per process. Every page
// of a run resolves against the same file, so it is kept for the whole run.
type ConstantsLoader struct {
	cache *cache.Cache
}

func NewConstantsLoader() *ConstantsLoader {
	return &ConstantsLoader{cache: cache.New(cache.NoExpiration, 0)}
}

// Load returns the file contents. A missing file is not an error: pages then
// resolve no indirect references.
func (l *ConstantsLoader) Load(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if v, ok := l.cache.Get(path); ok {
		return v.(string), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.cache.Set(path, "", cache.NoExpiration)
			return "", nil
		}
		return "", fmt.Errorf("reading constants file: %w", err)
	}
	l.cache.Set(path, string(data), cache.NoExpiration)
	return string(data), nil
}

// matchSpan returns the index just past the bracket that closes the one at
// src[open]. Quoted strings are skipped. Returns -1 when unbalanced.
func matchSpan(src string, open int) int {
	if open < 0 || open >= len(src) {
		return -1
	}
	var closeCh byte
	switch src[open] {
	case '{':
		closeCh = '}'
	case '[':
		closeCh = ']'
	case '(':
		closeCh = ')'
	default:
		return -1
	}
	openCh := src[open]
	depth := 0
	for i := open; i < len(src); i++ {
		c := src[i]
		switch c {
		case '"', '\'', '`':
			i = skipString(src, i)
			if i < 0 {
				return -1
			}
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// skipString returns the index of the quote closing the string at src[i].
func skipString(src string, i int) int {
	q := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j
		}
	}
	return -1
}
