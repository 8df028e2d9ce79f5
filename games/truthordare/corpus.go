/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package truthordare

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Mode is the kind of challenge a player picks on their turn.
type Mode string

const (
	Truth Mode = "truth"
	Dare  Mode = "dare"
)

// ParseMode accepts "truth" or "dare" in any case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Truth:
		return Truth, nil
	case Dare:
		return Dare, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Corpus is the fixed set of prompts a session draws from. It is never
// mutated once handed to a session.
type Corpus struct {
	truths []string
	dares  []string
}

// NewCorpus copies the given lists, dropping blank entries.
func NewCorpus(truths, dares []string) (Corpus, error) {
	c := Corpus{
		truths: compact(truths),
		dares:  compact(dares),
	}
	if len(c.truths) == 0 || len(c.dares) == 0 {
		return Corpus{}, ErrEmptyCorpus
	}

	return c, nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}

	return out
}

// Prompts returns a copy of the list for mode, or nil for an unknown mode.
func (c Corpus) Prompts(mode Mode) []string {
	switch mode {
	case Truth:
		return slices.Clone(c.truths)
	case Dare:
		return slices.Clone(c.dares)
	}

	return nil
}

func (c Corpus) list(mode Mode) []string {
	switch mode {
	case Truth:
		return c.truths
	case Dare:
		return c.dares
	}

	return nil
}

// Contains reports whether prompt belongs to the list for mode.
func (c Corpus) Contains(mode Mode, prompt string) bool {
	return slices.Contains(c.list(mode), prompt)
}

func (c Corpus) empty() bool {
	return len(c.truths) == 0 || len(c.dares) == 0
}

// LoadCorpus reads a prompt file with top-level "truth" and "dare" lists.
// Any format viper understands (json, yaml, toml) is accepted, picked by
// file extension.
func LoadCorpus(path string) (Corpus, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Corpus{}, fmt.Errorf("reading prompts from %s: %w", path, err)
	}

	c, err := NewCorpus(v.GetStringSlice(string(Truth)), v.GetStringSlice(string(Dare)))
	if err != nil {
		return Corpus{}, fmt.Errorf("loading prompts from %s: %w", path, err)
	}

	return c, nil
}

// DefaultCorpus returns the built-in prompts.
func DefaultCorpus() Corpus {
	return Corpus{
		truths: slices.Clone(defaultTruths),
		dares:  slices.Clone(defaultDares),
	}
}

var defaultTruths = []string{
	"What's the most embarrassing thing you've ever done?",
	"Who was your first crush?",
	"What's your biggest fear?",
	"What's the weirdest dream you've ever had?",
	"What's something you've never told your parents?",
	"What's your most embarrassing childhood memory?",
	"What's the worst lie you've ever told?",
	"What's something you're secretly proud of?",
	"What's your biggest pet peeve?",
	"What's the most childish thing you still do?",
	"What's something you've always wanted to try but haven't?",
	"What's your most irrational fear?",
	"What's the strangest food combination you enjoy?",
	"What's something you're terrible at but pretend you're good at?",
	"What's your most embarrassing social media post?",
	"What's something you do when no one's watching?",
	"What's the weirdest thing you believed as a child?",
	"What's your most embarrassing autocorrect fail?",
	"What's something you're afraid to admit?",
	"What's the most ridiculous thing you've cried over?",
}

var defaultDares = []string{
	"Do 20 jumping jacks",
	"Sing your favorite song out loud",
	"Do your best impression of a famous person",
	"Dance for 30 seconds without music",
	"Tell a joke and make everyone laugh",
	"Do 10 push-ups",
	"Speak in an accent for the next 3 rounds",
	"Do a cartwheel or handstand",
	"Call someone and sing 'Happy Birthday' to them",
	"Do your best animal impression",
	"Do 15 squats",
	"Tell everyone your most embarrassing story",
	"Do a silly dance",
	"Speak only in rhymes for the next 2 rounds",
	"Do 20 sit-ups",
	"Act out a movie scene",
	"Do your best impression of a baby",
	"Do 10 burpees",
	"Tell a story using only gestures",
	"Do your best robot impression",
}
