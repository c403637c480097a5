package render

import (
	"strings"
	"sync"
	"testing"
	"time"

	"agentconsole/internal/clock"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type call struct {
	ID    string
	Text  string
	Final bool
	At    time.Time
}

type recordingSink struct {
	mu    sync.Mutex
	clock clock.Clock
	calls []call
}

func (s *recordingSink) now() time.Time {
	if s.clock == nil {
		return time.Time{}
	}
	return s.clock.Now()
}

func (s *recordingSink) Frame(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{ID: id, Text: text, At: s.now()})
}

func (s *recordingSink) Complete(id, rich string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{ID: id, Text: rich, Final: true, At: s.now()})
}

func (s *recordingSink) byID(id string) []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []call
	for _, c := range s.calls {
		if c.ID == id {
			out = append(out, c)
		}
	}
	return out
}

func TestSchedule_Deterministic(t *testing.T) {
	p := DefaultPacer()
	ms := time.Millisecond

	got := p.Schedule("Hi, there!")
	want := []Step{
		{Text: "H", At: 0, Pause: 5 * ms},
		{Text: "Hi", At: 5 * ms, Pause: 5 * ms},
		{Text: "Hi,", At: 10 * ms, Pause: 50 * ms},
		{Text: "Hi, ", At: 60 * ms, Pause: 10 * ms},
		{Text: "Hi, t", At: 70 * ms, Pause: 5 * ms},
		{Text: "Hi, th", At: 75 * ms, Pause: 5 * ms},
		{Text: "Hi, the", At: 80 * ms, Pause: 5 * ms},
		{Text: "Hi, ther", At: 85 * ms, Pause: 5 * ms},
		{Text: "Hi, there", At: 90 * ms, Pause: 5 * ms},
		{Text: "Hi, there!", At: 95 * ms, Pause: 50 * ms},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("schedule mismatch (-want +got):\n%s", diff)
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, got, p.Schedule("Hi, there!"), "run %d", i)
	}
	assert.Equal(t, 145*ms, p.Duration("Hi, there!"))
}

func TestSchedule_MultibyteRunes(t *testing.T) {
	steps := DefaultPacer().Schedule("né\n")
	require.Len(t, steps, 3)
	assert.Equal(t, "né", steps[1].Text)
	assert.Equal(t, 10*time.Millisecond, steps[2].Pause)
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"emphasis", "**bold** and *it*", "bold and it"},
		{"entities", "a &amp; b", "a & b"},
		{"link", "[site](https://example.com)", "site"},
		{"list", "- one\n- two", "one\ntwo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Flatten(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(got))
		})
	}
}

func TestRenderer_RevealTimingMatchesSchedule(t *testing.T) {
	epoch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := clock.Fake(epoch)
	sink := &recordingSink{clock: fc}
	r := NewRenderer(sink, WithClock(fc))
	defer r.Close()

	require.NoError(t, r.Reveal("m1", "Hi, there!"))

	steps := DefaultPacer().Schedule("Hi, there!")
	for _, st := range steps {
		fc.WaitForTimers(1)
		fc.Advance(st.Pause)
	}
	r.Wait()

	calls := sink.byID("m1")
	require.Len(t, calls, len(steps)+1)
	for i, st := range steps {
		assert.Equal(t, st.Text, calls[i].Text)
		assert.Equal(t, epoch.Add(st.At), calls[i].At, "step %d", i)
	}
	last := calls[len(calls)-1]
	assert.True(t, last.Final)
	assert.Equal(t, "Hi, there!", last.Text)
	assert.Equal(t, 0, r.Active())
}

func TestRenderer_ConcurrentRevealsDoNotInterleave(t *testing.T) {
	sink := &recordingSink{}
	pacer := Pacer{Base: time.Microsecond, WhitespaceFactor: 2, PunctuationFactor: 10, Punctuation: DefaultPunctuation}
	rich := FormatterFunc(func(s string) (string, error) { return "<" + s + ">", nil })
	r := NewRenderer(sink, WithPacer(pacer), WithFormatter(rich))

	require.NoError(t, r.Reveal("sys", "system says hi."))
	require.NoError(t, r.Reveal("agent", "agent replies!"))
	r.Wait()

	for id, text := range map[string]string{"sys": "system says hi.", "agent": "agent replies!"} {
		calls := sink.byID(id)
		require.Len(t, calls, len([]rune(text))+1, id)
		for i, c := range calls[:len(calls)-1] {
			assert.Equal(t, text[:i+1], c.Text, "%s frame %d", id, i)
			assert.False(t, c.Final)
		}
		assert.Equal(t, call{ID: id, Text: "<" + text + ">", Final: true}, calls[len(calls)-1])
	}
}

func TestRenderer_CancelStopsDeterministically(t *testing.T) {
	fc := clock.Fake(time.Unix(0, 0))
	sink := &recordingSink{}
	r := NewRenderer(sink, WithClock(fc))

	require.NoError(t, r.Reveal("m1", "Hello"))
	fc.WaitForTimers(1)

	assert.True(t, r.Cancel("m1"))
	assert.False(t, r.Cancel("m1"))
	fc.Advance(time.Second)
	r.Wait()

	calls := sink.byID("m1")
	require.Len(t, calls, 1)
	assert.Equal(t, "H", calls[0].Text)
	r.Close()
}

func TestRenderer_SameIDRestarts(t *testing.T) {
	fc := clock.Fake(time.Unix(0, 0))
	sink := &recordingSink{}
	r := NewRenderer(sink, WithClock(fc))

	require.NoError(t, r.Reveal("m1", "first"))
	fc.WaitForTimers(1)
	require.NoError(t, r.Reveal("m1", "ab"))
	assert.Equal(t, 1, r.Active())

	for fc.Pending() > 0 || r.Active() > 0 {
		fc.Advance(5 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}
	r.Wait()

	calls := sink.byID("m1")
	assert.Equal(t, "f", calls[0].Text)
	last := calls[len(calls)-1]
	assert.True(t, last.Final)
	assert.Equal(t, "ab", last.Text)
	for _, c := range calls[1:] {
		assert.NotContains(t, c.Text, "fi", "cancelled reveal must not keep emitting")
	}
	r.Close()
}

func TestRenderer_EmptyTextCompletesImmediately(t *testing.T) {
	sink := &recordingSink{}
	r := NewRenderer(sink)
	require.NoError(t, r.Reveal("e", ""))
	r.Wait()
	assert.Equal(t, []call{{ID: "e", Text: "", Final: true}}, sink.byID("e"))
	r.Close()
}

func TestRenderer_ClosedRejects(t *testing.T) {
	r := NewRenderer(&recordingSink{})
	r.Close()
	assert.ErrorIs(t, r.Reveal("x", "y"), ErrClosed)
}
