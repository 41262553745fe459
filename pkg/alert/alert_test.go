package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	a := Error(MsgSoldOut)
	require.Equal(t, SeverityError, a.Severity)
	require.Equal(t, DefaultHideAfter, a.HideAfter)
	require.False(t, a.Persistent)

	f := Fatal("bad config")
	require.True(t, f.Persistent)
	require.Zero(t, f.HideAfter)

	w := Warning(MsgAntiBotFee).For(AntiBotHideAfter)
	require.Equal(t, 8*time.Second, w.HideAfter)
	require.Equal(t, "[warning] "+MsgAntiBotFee, w.String())

	nf := NotFound("cndy", "https://rpc.example")
	require.Contains(t, nf.Message, "cndy")
	require.Contains(t, nf.Message, "https://rpc.example")
	require.True(t, nf.Persistent)
}

func TestNotifierAutoHide(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe(4)
	defer cancel()

	n.Publish(Info("hello").For(20 * time.Millisecond))
	opened := <-ch
	require.True(t, opened.Open)
	require.Equal(t, uint64(1), opened.ID)

	select {
	case closed := <-ch:
		require.False(t, closed.Open)
		require.Equal(t, opened.ID, closed.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("alert was not hidden")
	}
	require.False(t, n.Current().Open)
}

func TestNotifierPersistentStaysOpen(t *testing.T) {
	n := NewNotifier()
	n.Publish(Fatal("missing id"))
	time.Sleep(30 * time.Millisecond)
	require.True(t, n.Current().Open)

	n.Dismiss()
	require.False(t, n.Current().Open)
	require.Equal(t, "missing id", n.Current().Message)
}

func TestNotifierNewAlertCancelsOldTimer(t *testing.T) {
	n := NewNotifier()
	n.Publish(Info("first").For(10 * time.Millisecond))
	n.Publish(Info("second").For(time.Hour))
	time.Sleep(40 * time.Millisecond)

	cur := n.Current()
	require.Equal(t, "second", cur.Message)
	require.True(t, cur.Open)
}

func TestNotifierSlowSubscriberDoesNotBlock(t *testing.T) {
	n := NewNotifier()
	_, cancel := n.Subscribe(0)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			n.Publish(Info("spam"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	cancel()
	cancel()
}
