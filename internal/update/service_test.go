package update

import (
	"errors"
	"testing"

	"github.com/muurk/smartrelay/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceSuccessfulAttempt(t *testing.T) {
	completed := 0
	s := NewService(func() error { completed++; return nil })

	s.OnStart()
	assert.Equal(t, PhaseReceiving, s.Status().Phase)

	for _, p := range []int{10, 50, 40, 120} {
		s.OnProgress(p)
	}
	assert.Equal(t, 100, s.Status().Percent, "progress is clamped and monotonic")

	s.OnEnd()
	st := s.Status()
	assert.Equal(t, PhaseCompleted, st.Phase)
	assert.Equal(t, "completed", st.PhaseName)
	assert.Equal(t, 1, st.Attempts)
	assert.Equal(t, 0, st.Failures)
	assert.Equal(t, 1, completed)
}

func TestServiceErrorsAreNonFatal(t *testing.T) {
	kinds := []ErrorKind{AuthFailure, BeginFailure, ConnectFailure, ReceiveFailure, EndFailure}

	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			completed := 0
			s := NewService(func() error { completed++; return nil })

			if kind != AuthFailure {
				s.OnStart()
				s.OnProgress(30)
			}
			s.OnError(kind)

			st := s.Status()
			assert.Equal(t, PhaseFailed, st.Phase)
			assert.Equal(t, kind.String(), st.LastError)
			assert.Equal(t, 1, st.Attempts)
			assert.Equal(t, 1, st.Failures)
			assert.Equal(t, 0, completed, "errors must not trigger completion")

			// A new attempt starts cleanly.
			s.OnStart()
			s.OnProgress(5)
			st = s.Status()
			assert.Equal(t, PhaseReceiving, st.Phase)
			assert.Equal(t, 5, st.Percent)
			assert.Equal(t, "", st.LastError)
			assert.Equal(t, 2, st.Attempts)
		})
	}
}

func TestServiceProgressIgnoredWhenIdle(t *testing.T) {
	s := NewService(nil)
	s.OnProgress(50)
	assert.Equal(t, 0, s.Status().Percent)
	assert.Equal(t, PhaseIdle, s.Status().Phase)
}

func TestServiceCompletionHookError(t *testing.T) {
	s := NewService(func() error { return errors.New("restart refused") })
	s.OnStart()
	s.OnEnd()
	assert.Equal(t, PhaseCompleted, s.Status().Phase)
}

func TestDeferredHooks(t *testing.T) {
	q := events.NewQueue()
	hooks := Deferred(q)
	s := NewService(nil)

	hooks.OnStart()
	hooks.OnProgress(42)
	hooks.OnError(ReceiveFailure)

	assert.Equal(t, PhaseIdle, s.Status().Phase, "nothing applied before the queue is drained")
	require.Equal(t, 3, q.Len())

	handled := 0
	q.Drain(func(ev events.Event) {
		if s.Handle(ev) {
			handled++
		}
	})
	assert.Equal(t, 3, handled)

	st := s.Status()
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, 42, st.Percent)
	assert.Equal(t, "ReceiveFailure", st.LastError)

	assert.False(t, s.Handle("unrelated"))
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{AuthFailure, "AuthFailure"},
		{BeginFailure, "BeginFailure"},
		{ConnectFailure, "ConnectFailure"},
		{ReceiveFailure, "ReceiveFailure"},
		{EndFailure, "EndFailure"},
		{ErrorKind(7), "ErrorKind(7)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind.String() = %v, want %v", got, tt.want)
		}
	}

	err := error(NewError(EndFailure, "checksum mismatch", nil))
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, EndFailure, kind)
	assert.Equal(t, "EndFailure: checksum mismatch", err.Error())
	assert.False(t, IsAuthFailure(err))
	assert.True(t, IsAuthFailure(NewError(AuthFailure, "", nil)))

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
