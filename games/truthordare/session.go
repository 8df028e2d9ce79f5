// Package truthordare holds the rules of a Truth or Dare game: who is up,
// what they picked, which prompt they drew, and how many challenges each
// player has completed.
//
// A Session is not safe for concurrent use. Callers that receive intents
// from more than one goroutine must funnel them through a single owner.
//
// Commands issued in the wrong round state (choosing a mode mid-round,
// completing a challenge that was never drawn) are ignored rather than
// reported, so that double-fired UI events cannot corrupt the game.
package truthordare

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
)

// MinPlayers is the smallest roster a session will accept.
const MinPlayers = 2

// Round is the phase of the current player's turn.
type Round int

const (
	// Idle waits for the current player to pick truth or dare.
	Idle Round = iota
	// Selecting has a mode picked but no prompt drawn yet.
	Selecting
	// Active has a prompt drawn and waits for complete or skip.
	Active
)

func (r Round) String() string {
	switch r {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Active:
		return "active"
	}

	return fmt.Sprintf("round(%d)", int(r))
}

func (r Round) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Round) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*r = Idle
	case "selecting":
		*r = Selecting
	case "active":
		*r = Active
	default:
		return fmt.Errorf("unknown round %q", text)
	}

	return nil
}

// Source yields uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Option configures a Session.
type Option func(*Session)

// WithSource replaces the random source used to draw prompts.
func WithSource(src Source) Option {
	return func(s *Session) {
		if src != nil {
			s.src = src
		}
	}
}

// WithMaxPlayers caps the roster size. Zero or less means no cap.
func WithMaxPlayers(n int) Option {
	return func(s *Session) {
		s.maxPlayers = max(n, 0)
	}
}

// Session is one game's authoritative state.
type Session struct {
	corpus     Corpus
	src        Source
	maxPlayers int

	players []string
	scores  []int
	current int

	round  Round
	mode   Mode
	prompt string

	editing int
	draft   string
}

// New starts a game for names with every score at zero and the first
// player up.
func New(corpus Corpus, names []string, opts ...Option) (*Session, error) {
	if corpus.empty() {
		return nil, ErrEmptyCorpus
	}

	s := &Session{
		corpus:  corpus,
		src:     globalSource{},
		editing: -1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Setup(names); err != nil {
		return nil, err
	}

	return s, nil
}

// Setup replaces the whole game with a fresh one for names. Blank names
// become "Player N" where N is the 1-based position.
func (s *Session) Setup(names []string) error {
	if err := s.checkSize(len(names)); err != nil {
		return err
	}

	s.players = Sanitize(names)
	s.scores = make([]int, len(names))
	s.current = 0
	s.clearRound()
	s.CancelEdit()

	return nil
}

// Sanitize trims every name and fills blanks with a positional placeholder.
func Sanitize(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			name = placeholder(i)
		}
		out[i] = name
	}

	return out
}

func placeholder(i int) string {
	return fmt.Sprintf("Player %d", i+1)
}

func (s *Session) checkSize(n int) error {
	if n < MinPlayers {
		return ErrInvalidRosterSize
	}
	if s.maxPlayers > 0 && n > s.maxPlayers {
		return fmt.Errorf("%w: at most %d players", ErrRosterTooLarge, s.maxPlayers)
	}

	return nil
}

// ChooseMode picks mode for the current player and draws a prompt.
// It does nothing unless the round is Idle.
func (s *Session) ChooseMode(mode Mode) {
	if s.Select(mode) {
		s.Reveal()
	}
}

// Select records the mode without drawing, leaving the round Selecting
// until Reveal. It reports whether the round changed.
func (s *Session) Select(mode Mode) bool {
	if s.round != Idle || s.corpus.list(mode) == nil {
		return false
	}

	s.mode = mode
	s.round = Selecting

	return true
}

// Reveal draws a prompt for the selected mode. It reports whether a prompt
// was drawn.
func (s *Session) Reveal() bool {
	if s.round != Selecting {
		return false
	}

	list := s.corpus.list(s.mode)
	s.prompt = list[s.src.IntN(len(list))]
	s.round = Active

	return true
}

// CompleteChallenge scores a point for the current player and passes the
// turn on.
func (s *Session) CompleteChallenge() bool {
	if s.round != Active {
		return false
	}

	s.scores[s.current]++
	s.advance()

	return true
}

// SkipChallenge passes the turn on without scoring.
func (s *Session) SkipChallenge() bool {
	if s.round != Active {
		return false
	}

	s.advance()

	return true
}

func (s *Session) advance() {
	s.current = (s.current + 1) % len(s.players)
	s.clearRound()
}

func (s *Session) clearRound() {
	s.round = Idle
	s.mode = ""
	s.prompt = ""
}

// Reset zeroes every score and hands the turn back to the first player.
// The roster is kept.
func (s *Session) Reset() {
	clear(s.scores)
	s.current = 0
	s.clearRound()
}

// UpdateRoster replaces the roster. A nil scores keeps each existing score
// by position, pads new positions with zero and drops the rest; otherwise
// scores is used as given and must match names in length.
func (s *Session) UpdateRoster(names []string, scores []int) error {
	if err := s.checkSize(len(names)); err != nil {
		return err
	}
	if scores != nil && len(scores) != len(names) {
		return ErrScoresMismatch
	}

	if scores == nil {
		scores = make([]int, len(names))
		copy(scores, s.scores)
	} else {
		scores = slices.Clone(scores)
	}

	s.players = slices.Clone(names)
	s.scores = scores
	s.shrunk()

	return nil
}

// AddPlayer appends a player with no points. An empty name gets a
// generated one.
func (s *Session) AddPlayer(name string) error {
	if err := s.checkSize(len(s.players) + 1); err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = placeholder(len(s.players))
	}

	s.players = append(s.players, name)
	s.scores = append(s.scores, 0)

	return nil
}

// RemovePlayer drops the player at index along with their score.
func (s *Session) RemovePlayer(index int) error {
	if index < 0 || index >= len(s.players) {
		return ErrPlayerIndex
	}
	if err := s.checkSize(len(s.players) - 1); err != nil {
		return err
	}

	s.players = slices.Delete(s.players, index, index+1)
	s.scores = slices.Delete(s.scores, index, index+1)

	switch {
	case s.editing == index:
		s.CancelEdit()
	case s.editing > index:
		s.editing--
	}

	s.shrunk()

	return nil
}

// shrunk pulls the cursor and any edit back inside the roster. A round in
// progress for a player who no longer exists is abandoned.
func (s *Session) shrunk() {
	if s.current >= len(s.players) {
		s.current = len(s.players) - 1
		s.clearRound()
	}
	if s.editing >= len(s.players) {
		s.CancelEdit()
	}
}

// BeginEdit starts editing the name at index, dropping any other draft.
func (s *Session) BeginEdit(index int) error {
	if index < 0 || index >= len(s.players) {
		return ErrPlayerIndex
	}

	s.editing = index
	s.draft = s.players[index]

	return nil
}

// SetDraft replaces the text of the edit in progress.
func (s *Session) SetDraft(text string) {
	if s.editing < 0 {
		return
	}

	s.draft = text
}

// CommitEdit renames the player being edited to the trimmed text and ends
// the edit. Blank text leaves the name alone. It reports whether the name
// was changed.
func (s *Session) CommitEdit(text string) bool {
	if s.editing < 0 {
		return false
	}

	index := s.editing
	s.CancelEdit()

	name := strings.TrimSpace(text)
	if name == "" {
		return false
	}

	s.players[index] = name

	return true
}

// CancelEdit drops the draft without touching the roster.
func (s *Session) CancelEdit() {
	s.editing = -1
	s.draft = ""
}

// Current returns the index and name of the player whose turn it is.
func (s *Session) Current() (int, string) {
	return s.current, s.players[s.current]
}

func (s *Session) Round() Round {
	return s.round
}

func (s *Session) Mode() Mode {
	return s.mode
}

func (s *Session) Len() int {
	return len(s.players)
}

// Edit is a rename in progress.
type Edit struct {
	Index int    `json:"index"`
	Draft string `json:"draft"`
}

// State is a read-only copy of a session. Current is a 0-based index into
// Players.
type State struct {
	Players []string `json:"players"`
	Scores  []int    `json:"scores"`
	Current int      `json:"current"`
	Round   Round    `json:"round"`
	Mode    Mode     `json:"mode,omitempty"`
	Prompt  string   `json:"prompt,omitempty"`
	Editing *Edit    `json:"editing,omitempty"`
}

// Snapshot copies the session's state. Changing the result does not
// affect the session.
func (s *Session) Snapshot() State {
	st := State{
		Players: slices.Clone(s.players),
		Scores:  slices.Clone(s.scores),
		Current: s.current,
		Round:   s.round,
		Mode:    s.mode,
		Prompt:  s.prompt,
	}
	if s.editing >= 0 {
		st.Editing = &Edit{Index: s.editing, Draft: s.draft}
	}

	return st
}
