package scratch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newStore(t *testing.T) (*Store, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	s, err := New(t.TempDir(), WithClock(mock))
	require.NoError(t, err)
	return s, mock
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestWrite(t *testing.T) {
	s, _ := newStore(t)
	assert.Equal(t, Subdir, filepath.Base(s.Dir()))

	path, err := s.Write("a.jpg", []byte("data"))
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	_, err = s.Write("a.jpg", []byte("other"))
	assert.Error(t, err, "existing files are never overwritten")

	for _, name := range []string{"", "../x.jpg", "dir/x.jpg"} {
		_, err := s.Write(name, nil)
		assert.Error(t, err, name)
	}
}

func TestScheduledRemoval(t *testing.T) {
	s, mock := newStore(t)
	a, err := s.Write("a.jpg", []byte("a"))
	require.NoError(t, err)
	b, err := s.Write("b.jpg", []byte("b"))
	require.NoError(t, err)

	task := s.ScheduleRemoval([]string{a}, 5*time.Second)
	other := s.ScheduleRemoval([]string{b}, 10*time.Second)
	assert.Equal(t, 2, s.Pending())

	mock.Add(4 * time.Second)
	assert.True(t, exists(a))

	mock.Add(time.Second)
	require.Eventually(t, func() bool { return !exists(a) }, time.Second, time.Millisecond)
	<-task.Done()
	assert.True(t, exists(b), "cleanup never touches other tasks' files")
	assert.Equal(t, 1, s.Pending())

	mock.Add(5 * time.Second)
	<-other.Done()
	assert.False(t, exists(b))
	assert.Equal(t, 0, s.Pending())
}

func TestCancel(t *testing.T) {
	s, mock := newStore(t)
	a, err := s.Write("a.jpg", []byte("a"))
	require.NoError(t, err)

	task := s.ScheduleRemoval([]string{a}, time.Second)
	assert.True(t, task.Cancel())
	<-task.Done()
	assert.Equal(t, 0, s.Pending())

	mock.Add(time.Minute)
	assert.True(t, exists(a))
	assert.False(t, task.Cancel())
}

func TestRemovalToleratesMissingFiles(t *testing.T) {
	s, mock := newStore(t)
	task := s.ScheduleRemoval([]string{filepath.Join(s.Dir(), "gone.jpg")}, time.Second)
	mock.Add(time.Second)
	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("cleanup did not run")
	}
}

func TestFlush(t *testing.T) {
	s, _ := newStore(t)
	a, err := s.Write("a.jpg", []byte("a"))
	require.NoError(t, err)
	task := s.ScheduleRemoval([]string{a}, time.Hour)

	s.Flush()
	<-task.Done()
	assert.False(t, exists(a))
	assert.Equal(t, 0, s.Pending())
}
