package logmanager

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ LogManager = (*FileLogManager)(nil)

func TestFileLogManager_WriteThenRead(t *testing.T) {
	lm, err := NewFileLogManager(t.TempDir())
	require.NoError(t, err)

	w, err := lm.OpenStdout("task-1", ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := lm.OpenStdout("task-1", ModeRead)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFileLogManager_ReadMissing(t *testing.T) {
	lm, err := NewFileLogManager(t.TempDir())
	require.NoError(t, err)

	_, err = lm.OpenStderr("does-not-exist", ModeRead)
	assert.ErrorIs(t, err, ErrNoLogFound)
}

func TestFileLogManager_StdoutStderrSeparate(t *testing.T) {
	lm, err := NewFileLogManager(t.TempDir())
	require.NoError(t, err)

	out, err := lm.OpenStdout("task-2", ModeWrite)
	require.NoError(t, err)
	out.Write([]byte("out"))
	out.Close()

	_, err = lm.OpenStderr("task-2", ModeRead)
	assert.ErrorIs(t, err, ErrNoLogFound)
}
