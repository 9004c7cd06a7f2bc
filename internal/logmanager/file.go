package logmanager

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileLogManager stores each task's stdout/stderr as a plain file under
// Dir, named <task-id>.stdout and <task-id>.stderr.
type FileLogManager struct {
	Dir string
}

// NewFileLogManager creates a FileLogManager rooted at dir, creating the
// directory if it doesn't exist.
func NewFileLogManager(dir string) (*FileLogManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &FileLogManager{Dir: dir}, nil
}

func (f *FileLogManager) OpenStdout(taskID string, mode string) (io.ReadWriteCloser, error) {
	return f.open(taskID, "stdout", mode)
}

func (f *FileLogManager) OpenStderr(taskID string, mode string) (io.ReadWriteCloser, error) {
	return f.open(taskID, "stderr", mode)
}

func (f *FileLogManager) open(taskID, stream, mode string) (io.ReadWriteCloser, error) {
	path := filepath.Join(f.Dir, fmt.Sprintf("%s.%s", taskID, stream))

	if mode == ModeRead {
		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNoLogFound
			}
			return nil, fmt.Errorf("failed to open %s log: %w", stream, err)
		}
		return file, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s log: %w", stream, err)
	}
	return file, nil
}
