package truthordare

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
)

// fixedSource always returns the same index, clamped to the list.
type fixedSource int

func (f fixedSource) IntN(n int) int { return min(int(f), n-1) }

func newSession(t *testing.T, names ...string) *Session {
	t.Helper()

	s, err := New(DefaultCorpus(), names, WithSource(rand.New(rand.NewPCG(1, 2))))
	if err != nil {
		t.Fatalf("New(%q): %v", names, err)
	}

	return s
}

func checkInvariants(t *testing.T, s *Session) {
	t.Helper()

	st := s.Snapshot()
	if len(st.Players) != len(st.Scores) {
		t.Fatalf("roster/scores misaligned: %d players, %d scores", len(st.Players), len(st.Scores))
	}
	if len(st.Players) < MinPlayers {
		t.Fatalf("roster has %d players", len(st.Players))
	}
	if st.Current < 0 || st.Current >= len(st.Players) {
		t.Fatalf("cursor %d out of range for %d players", st.Current, len(st.Players))
	}
	if st.Round == Idle && (st.Mode != "" || st.Prompt != "") {
		t.Fatalf("idle round carries mode %q prompt %q", st.Mode, st.Prompt)
	}
}

func TestSetup(t *testing.T) {
	s := newSession(t, "Alice", "Bob")
	st := s.Snapshot()

	if !slices.Equal(st.Players, []string{"Alice", "Bob"}) {
		t.Errorf("players = %q", st.Players)
	}
	if !slices.Equal(st.Scores, []int{0, 0}) {
		t.Errorf("scores = %v", st.Scores)
	}
	if st.Current != 0 {
		t.Errorf("current = %d, want 0", st.Current)
	}
	if st.Round != Idle {
		t.Errorf("round = %v, want idle", st.Round)
	}
	if st.Editing != nil {
		t.Errorf("editing = %+v, want nil", st.Editing)
	}
}

func TestSetupSanitizesBlankNames(t *testing.T) {
	s := newSession(t, "", "  ", "Zoe", " Max ")

	want := []string{"Player 1", "Player 2", "Zoe", "Max"}
	if got := s.Snapshot().Players; !slices.Equal(got, want) {
		t.Fatalf("players = %q, want %q", got, want)
	}
}

func TestSetupRosterSize(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		max   int
		want  error
	}{
		{"empty", nil, 0, ErrInvalidRosterSize},
		{"one", []string{"Solo"}, 0, ErrInvalidRosterSize},
		{"two", []string{"A", "B"}, 0, nil},
		{"at cap", []string{"A", "B", "C"}, 3, nil},
		{"over cap", []string{"A", "B", "C", "D"}, 3, ErrRosterTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(DefaultCorpus(), tt.names, WithMaxPlayers(tt.max))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewRejectsEmptyCorpus(t *testing.T) {
	if _, err := New(Corpus{}, []string{"A", "B"}); !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("err = %v, want %v", err, ErrEmptyCorpus)
	}
}

func TestSetupFailureKeepsGame(t *testing.T) {
	s := newSession(t, "Alice", "Bob")
	s.ChooseMode(Dare)
	s.CompleteChallenge()

	before := s.Snapshot()
	if err := s.Setup([]string{"Solo"}); !errors.Is(err, ErrInvalidRosterSize) {
		t.Fatalf("err = %v", err)
	}
	after := s.Snapshot()

	if !slices.Equal(before.Players, after.Players) || !slices.Equal(before.Scores, after.Scores) || before.Current != after.Current {
		t.Fatalf("state changed: %+v -> %+v", before, after)
	}
}

func TestDareThenComplete(t *testing.T) {
	s := newSession(t, "Alice", "Bob")

	s.ChooseMode(Dare)
	st := s.Snapshot()
	if st.Round != Active || st.Mode != Dare {
		t.Fatalf("round %v mode %q, want active dare", st.Round, st.Mode)
	}
	if !DefaultCorpus().Contains(Dare, st.Prompt) {
		t.Fatalf("prompt %q is not a dare", st.Prompt)
	}

	if !s.CompleteChallenge() {
		t.Fatal("CompleteChallenge returned false")
	}
	st = s.Snapshot()
	if !slices.Equal(st.Scores, []int{1, 0}) {
		t.Errorf("scores = %v, want [1 0]", st.Scores)
	}
	if st.Current != 1 {
		t.Errorf("current = %d, want 1", st.Current)
	}
	if st.Round != Idle || st.Mode != "" || st.Prompt != "" {
		t.Errorf("round not cleared: %+v", st)
	}

	s.ChooseMode(Truth)
	if !s.SkipChallenge() {
		t.Fatal("SkipChallenge returned false")
	}
	st = s.Snapshot()
	if !slices.Equal(st.Scores, []int{1, 0}) {
		t.Errorf("scores = %v, want [1 0]", st.Scores)
	}
	if st.Current != 0 {
		t.Errorf("current = %d, want wrap to 0", st.Current)
	}
	checkInvariants(t, s)
}

func TestPromptsStayInTheirList(t *testing.T) {
	corpus := DefaultCorpus()
	s := newSession(t, "A", "B", "C")

	for i := range 500 {
		mode := Truth
		if i%2 == 1 {
			mode = Dare
		}

		s.ChooseMode(mode)
		st := s.Snapshot()
		if !corpus.Contains(mode, st.Prompt) {
			t.Fatalf("draw %d: %q not in %s list", i, st.Prompt, mode)
		}
		s.SkipChallenge()
	}
}

func TestDrawUsesSource(t *testing.T) {
	corpus, err := NewCorpus([]string{"t0", "t1", "t2"}, []string{"d0", "d1"})
	if err != nil {
		t.Fatal(err)
	}

	s, err := New(corpus, []string{"A", "B"}, WithSource(fixedSource(1)))
	if err != nil {
		t.Fatal(err)
	}

	s.ChooseMode(Truth)
	if got := s.Snapshot().Prompt; got != "t1" {
		t.Fatalf("prompt = %q, want t1", got)
	}
	s.SkipChallenge()

	s.ChooseMode(Dare)
	if got := s.Snapshot().Prompt; got != "d1" {
		t.Fatalf("prompt = %q, want d1", got)
	}
	s.SkipChallenge()

	// Draws are with replacement.
	s.ChooseMode(Dare)
	if got := s.Snapshot().Prompt; got != "d1" {
		t.Fatalf("prompt = %q, want d1 again", got)
	}
}

func TestChooseModeTwiceIsIgnored(t *testing.T) {
	s := newSession(t, "Alice", "Bob")

	s.ChooseMode(Truth)
	first := s.Snapshot()
	s.ChooseMode(Dare)
	second := s.Snapshot()

	if first.Mode != second.Mode || first.Prompt != second.Prompt || second.Round != Active {
		t.Fatalf("second ChooseMode changed state: %+v -> %+v", first, second)
	}
}

func TestCompleteAndSkipWhileIdle(t *testing.T) {
	s := newSession(t, "Alice", "Bob")

	if s.CompleteChallenge() {
		t.Error("CompleteChallenge while idle returned true")
	}
	if s.SkipChallenge() {
		t.Error("SkipChallenge while idle returned true")
	}

	st := s.Snapshot()
	if !slices.Equal(st.Scores, []int{0, 0}) || st.Current != 0 {
		t.Fatalf("idle no-op changed state: %+v", st)
	}
}

func TestSelectAndReveal(t *testing.T) {
	s := newSession(t, "Alice", "Bob")

	if s.Reveal() {
		t.Fatal("Reveal while idle returned true")
	}
	if !s.Select(Truth) {
		t.Fatal("Select returned false")
	}
	if s.Select(Dare) {
		t.Fatal("second Select returned true")
	}

	st := s.Snapshot()
	if st.Round != Selecting || st.Mode != Truth || st.Prompt != "" {
		t.Fatalf("after Select: %+v", st)
	}
	if s.CompleteChallenge() || s.SkipChallenge() {
		t.Fatal("complete/skip accepted while selecting")
	}

	if !s.Reveal() {
		t.Fatal("Reveal returned false")
	}
	if s.Reveal() {
		t.Fatal("second Reveal returned true")
	}
	st = s.Snapshot()
	if st.Round != Active || !DefaultCorpus().Contains(Truth, st.Prompt) {
		t.Fatalf("after Reveal: %+v", st)
	}
}

func TestSelectUnknownMode(t *testing.T) {
	s := newSession(t, "Alice", "Bob")

	if s.Select(Mode("both")) {
		t.Fatal("Select accepted an unknown mode")
	}
	if s.Round() != Idle {
		t.Fatalf("round = %v", s.Round())
	}
}

func TestCompleteOnlyScoresCurrentPlayer(t *testing.T) {
	s := newSession(t, "A", "B", "C", "D")
	if err := s.UpdateRoster([]string{"A", "B", "C", "D"}, []int{4, 3, 2, 1}); err != nil {
		t.Fatal(err)
	}

	want := []int{4, 3, 2, 1}
	for turn := range 8 {
		idx, _ := s.Current()
		s.ChooseMode(Truth)
		s.CompleteChallenge()
		want[idx]++

		if got := s.Snapshot().Scores; !slices.Equal(got, want) {
			t.Fatalf("turn %d: scores = %v, want %v", turn, got, want)
		}
		checkInvariants(t, s)
	}
}

func TestTurnWrapsFromLastPlayer(t *testing.T) {
	s := newSession(t, "A", "B", "C")

	for range 2 {
		s.ChooseMode(Dare)
		s.SkipChallenge()
	}
	if idx, name := s.Current(); idx != 2 || name != "C" {
		t.Fatalf("current = %d %q, want 2 C", idx, name)
	}

	s.ChooseMode(Dare)
	s.CompleteChallenge()
	if idx, _ := s.Current(); idx != 0 {
		t.Fatalf("current = %d, want 0", idx)
	}
}

func TestReset(t *testing.T) {
	s := newSession(t, "Alice", "Bob", "Cara")
	s.ChooseMode(Dare)
	s.CompleteChallenge()
	s.ChooseMode(Truth)

	s.Reset()
	st := s.Snapshot()

	if !slices.Equal(st.Players, []string{"Alice", "Bob", "Cara"}) {
		t.Errorf("players = %q", st.Players)
	}
	if !slices.Equal(st.Scores, []int{0, 0, 0}) {
		t.Errorf("scores = %v", st.Scores)
	}
	if st.Current != 0 || st.Round != Idle || st.Prompt != "" {
		t.Errorf("round not reset: %+v", st)
	}
}

func TestUpdateRosterPadsScores(t *testing.T) {
	s := newSession(t, "Alice", "Bob")
	if err := s.UpdateRoster([]string{"Alice", "Bob"}, []int{3, 5}); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateRoster([]string{"Alice", "Bob", "Cara"}, nil); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Scores; !slices.Equal(got, []int{3, 5, 0}) {
		t.Fatalf("scores = %v, want [3 5 0]", got)
	}

	if err := s.UpdateRoster([]string{"Bob", "Cara"}, nil); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Scores; !slices.Equal(got, []int{3, 5}) {
		t.Fatalf("scores = %v, want [3 5] (aligned by position)", got)
	}
}

func TestUpdateRosterErrors(t *testing.T) {
	s := newSession(t, "Alice", "Bob", "Cara")
	before := s.Snapshot()

	if err := s.UpdateRoster([]string{"Alice"}, nil); !errors.Is(err, ErrRosterTooSmall) {
		t.Errorf("short roster: err = %v", err)
	}
	if err := s.UpdateRoster([]string{"Alice", "Bob"}, []int{1}); !errors.Is(err, ErrScoresMismatch) {
		t.Errorf("short scores: err = %v", err)
	}

	after := s.Snapshot()
	if !slices.Equal(before.Players, after.Players) || !slices.Equal(before.Scores, after.Scores) {
		t.Fatalf("rejected update changed state: %+v -> %+v", before, after)
	}
}

func TestUpdateRosterDoesNotAlias(t *testing.T) {
	s := newSession(t, "Alice", "Bob")
	names := []string{"Alice", "Bob"}
	scores := []int{1, 2}

	if err := s.UpdateRoster(names, scores); err != nil {
		t.Fatal(err)
	}
	names[0] = "Mallory"
	scores[0] = 99

	st := s.Snapshot()
	if st.Players[0] != "Alice" || st.Scores[0] != 1 {
		t.Fatalf("session aliases caller slices: %+v", st)
	}

	st.Players[1] = "Eve"
	if s.Snapshot().Players[1] != "Bob" {
		t.Fatal("snapshot aliases session roster")
	}
}

func TestShrinkClampsCursor(t *testing.T) {
	s := newSession(t, "A", "B", "C", "D")
	for range 3 {
		s.ChooseMode(Truth)
		s.SkipChallenge()
	}
	s.ChooseMode(Dare)

	if err := s.UpdateRoster([]string{"A", "B"}, nil); err != nil {
		t.Fatal(err)
	}

	st := s.Snapshot()
	if st.Current != 1 {
		t.Errorf("current = %d, want clamp to 1", st.Current)
	}
	if st.Round != Idle || st.Mode != "" || st.Prompt != "" {
		t.Errorf("round not abandoned: %+v", st)
	}
	checkInvariants(t, s)
}

func TestShrinkKeepsRoundWhenCursorValid(t *testing.T) {
	s := newSession(t, "A", "B", "C")
	s.ChooseMode(Dare)

	if err := s.RemovePlayer(2); err != nil {
		t.Fatal(err)
	}

	st := s.Snapshot()
	if st.Round != Active || st.Current != 0 {
		t.Fatalf("round disturbed: %+v", st)
	}
}

func TestAddPlayer(t *testing.T) {
	s, err := New(DefaultCorpus(), []string{"Alice", "Bob"}, WithMaxPlayers(4))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.AddPlayer(""); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPlayer("  Dan "); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPlayer("Eve"); !errors.Is(err, ErrRosterTooLarge) {
		t.Fatalf("err = %v, want %v", err, ErrRosterTooLarge)
	}

	st := s.Snapshot()
	if !slices.Equal(st.Players, []string{"Alice", "Bob", "Player 3", "Dan"}) {
		t.Errorf("players = %q", st.Players)
	}
	if !slices.Equal(st.Scores, []int{0, 0, 0, 0}) {
		t.Errorf("scores = %v", st.Scores)
	}
}

func TestRemovePlayer(t *testing.T) {
	s := newSession(t, "Alice", "Bob", "Cara")
	if err := s.UpdateRoster([]string{"Alice", "Bob", "Cara"}, []int{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	if err := s.RemovePlayer(1); err != nil {
		t.Fatal(err)
	}

	st := s.Snapshot()
	if !slices.Equal(st.Players, []string{"Alice", "Cara"}) || !slices.Equal(st.Scores, []int{1, 3}) {
		t.Fatalf("after remove: %+v", st)
	}
}

func TestRemovePlayerErrors(t *testing.T) {
	s := newSession(t, "Alice", "Bob")
	s.ChooseMode(Truth)
	s.CompleteChallenge()
	before := s.Snapshot()

	if err := s.RemovePlayer(0); !errors.Is(err, ErrInvalidRosterSize) {
		t.Errorf("err = %v, want %v", err, ErrInvalidRosterSize)
	}
	if err := s.RemovePlayer(5); !errors.Is(err, ErrPlayerIndex) {
		t.Errorf("err = %v, want %v", err, ErrPlayerIndex)
	}
	if err := s.RemovePlayer(-1); !errors.Is(err, ErrPlayerIndex) {
		t.Errorf("err = %v, want %v", err, ErrPlayerIndex)
	}

	after := s.Snapshot()
	if !slices.Equal(before.Players, after.Players) || !slices.Equal(before.Scores, after.Scores) || before.Current != after.Current {
		t.Fatalf("rejected remove changed state: %+v -> %+v", before, after)
	}
}

func TestRemoveLastPlayerWhileUp(t *testing.T) {
	s := newSession(t, "A", "B", "C")
	s.ChooseMode(Truth)
	s.SkipChallenge()
	s.ChooseMode(Truth)
	s.SkipChallenge()
	s.ChooseMode(Dare)

	if err := s.RemovePlayer(2); err != nil {
		t.Fatal(err)
	}

	st := s.Snapshot()
	if st.Current != 1 || st.Round != Idle {
		t.Fatalf("after removing the active player: %+v", st)
	}
}

func TestEditName(t *testing.T) {
	s := newSession(t, "Alice", "Bob")

	if err := s.BeginEdit(1); err != nil {
		t.Fatal(err)
	}
	st := s.Snapshot()
	if st.Editing == nil || st.Editing.Index != 1 || st.Editing.Draft != "Bob" {
		t.Fatalf("editing = %+v", st.Editing)
	}

	s.SetDraft("Bobby")
	if got := s.Snapshot().Editing.Draft; got != "Bobby" {
		t.Fatalf("draft = %q", got)
	}

	if !s.CommitEdit("  Robert ") {
		t.Fatal("CommitEdit returned false")
	}
	st = s.Snapshot()
	if st.Players[1] != "Robert" || st.Editing != nil {
		t.Fatalf("after commit: %+v", st)
	}
}

func TestCommitBlankNameIsIgnored(t *testing.T) {
	s := newSession(t, "Alice", "Bob")

	if err := s.BeginEdit(0); err != nil {
		t.Fatal(err)
	}
	if s.CommitEdit("   ") {
		t.Fatal("blank commit returned true")
	}

	st := s.Snapshot()
	if st.Players[0] != "Alice" {
		t.Fatalf("name changed to %q", st.Players[0])
	}
	if st.Editing != nil {
		t.Fatalf("edit still open: %+v", st.Editing)
	}
}

func TestCommitWithoutEdit(t *testing.T) {
	s := newSession(t, "Alice", "Bob")

	if s.CommitEdit("Mallory") {
		t.Fatal("commit without edit returned true")
	}
	if got := s.Snapshot().Players; !slices.Equal(got, []string{"Alice", "Bob"}) {
		t.Fatalf("players = %q", got)
	}
}

func TestBeginEditReplacesDraft(t *testing.T) {
	s := newSession(t, "Alice", "Bob")

	_ = s.BeginEdit(0)
	s.SetDraft("Alicia")
	if err := s.BeginEdit(1); err != nil {
		t.Fatal(err)
	}

	st := s.Snapshot()
	if st.Editing.Index != 1 || st.Editing.Draft != "Bob" {
		t.Fatalf("editing = %+v", st.Editing)
	}
	if st.Players[0] != "Alice" {
		t.Fatalf("discarded draft was applied: %q", st.Players[0])
	}

	if err := s.BeginEdit(2); !errors.Is(err, ErrPlayerIndex) {
		t.Fatalf("err = %v, want %v", err, ErrPlayerIndex)
	}
}

func TestCancelEdit(t *testing.T) {
	s := newSession(t, "Alice", "Bob")

	_ = s.BeginEdit(0)
	s.SetDraft("Zed")
	s.CancelEdit()

	st := s.Snapshot()
	if st.Editing != nil || st.Players[0] != "Alice" {
		t.Fatalf("after cancel: %+v", st)
	}

	s.SetDraft("ignored")
	if s.Snapshot().Editing != nil {
		t.Fatal("SetDraft opened an edit")
	}
}

func TestRemoveFollowsEdit(t *testing.T) {
	s := newSession(t, "A", "B", "C", "D")

	_ = s.BeginEdit(3)
	if err := s.RemovePlayer(1); err != nil {
		t.Fatal(err)
	}
	if e := s.Snapshot().Editing; e == nil || e.Index != 2 || e.Draft != "D" {
		t.Fatalf("editing = %+v, want index 2 draft D", e)
	}

	if err := s.RemovePlayer(2); err != nil {
		t.Fatal(err)
	}
	if e := s.Snapshot().Editing; e != nil {
		t.Fatalf("edit of removed player still open: %+v", e)
	}
}

func TestRandomCommandsKeepInvariants(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	s, err := New(DefaultCorpus(), []string{"A", "B", "C"}, WithSource(r), WithMaxPlayers(12))
	if err != nil {
		t.Fatal(err)
	}

	for range 2000 {
		switch r.IntN(10) {
		case 0:
			s.ChooseMode(Truth)
		case 1:
			s.ChooseMode(Dare)
		case 2:
			s.CompleteChallenge()
		case 3:
			s.SkipChallenge()
		case 4:
			_ = s.AddPlayer("")
		case 5:
			_ = s.RemovePlayer(r.IntN(s.Len() + 1))
		case 6:
			_ = s.BeginEdit(r.IntN(s.Len()))
		case 7:
			s.CommitEdit("renamed")
		case 8:
			n := 1 + r.IntN(6)
			_ = s.UpdateRoster(make([]string, n), nil)
		case 9:
			s.Reset()
		}
		checkInvariants(t, s)
	}
}
