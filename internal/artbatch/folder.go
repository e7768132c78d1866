package artbatch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v6"
)

// NameSource yields candidate folder names.
type NameSource func() string

// WordNames returns random dictionary words. seed 0 picks a random seed.
func WordNames(seed int64) NameSource {
	var mu sync.Mutex
	f := gofakeit.New(seed)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return f.Word()
	}
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '_':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "run"
	}
	return b.String()
}

// makeRunDir creates a fresh folder under root named after a random word,
// suffixing -2, -3, ... when the name is taken.
func makeRunDir(root string, names NameSource) (string, string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", "", fmt.Errorf("creating images root: %w", err)
	}
	base := sanitize(names())
	for i := 1; i <= 1000; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		dir := filepath.Join(root, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return name, dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", fmt.Errorf("creating run folder: %w", err)
		}
	}
	return "", "", fmt.Errorf("creating run folder: no free name for %q", base)
}
