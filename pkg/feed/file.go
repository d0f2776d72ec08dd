package feed

import (
	"context"
	"os"
)

// FileSource re-reads a telegram file on every fetch. Useful for replaying
// captures.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: s.path, Err: err}
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &FetchError{Source: s.path, Err: err}
	}
	return b, nil
}
