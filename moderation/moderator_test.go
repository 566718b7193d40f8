package moderation

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"roomchat/errors"
)

const replacementChar = '*'

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fixture words must not occur inside ordinary words of the inputs
// ("rat" would collide with "grateful").
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"walrus", "ferret", "python"}
	mod, err := NewModerator(dictionary, replacementChar, discardLogger())
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Plain match keeps surrounding text",
			input:    "A walrus walked in",
			expected: "A ****** walked in",
			words:    []string{"walrus"},
		},
		{
			name:     "Every occurrence is masked",
			input:    "ferret ferret",
			expected: "****** ******",
			words:    []string{"ferret", "ferret"},
		},
		{
			name: "Leet speak with inserted punctuation",
			// f . € . r . r . 3 . t spans 11 runes in the raw text
			input:    "that f.€.r.r.3.t hid",
			expected: "that *********** hid",
			words:    []string{"ferret"},
		},
		{
			name:     "Uppercase letters split by separators",
			input:    "W-A-L-R-U-S is a P.Y.T.H.O.N",
			expected: "*********** is a ***********",
			words:    []string{"walrus", "python"},
		},
		{
			name:     "Accented text around the match",
			input:    "le python est là",
			expected: "le ****** est là",
			words:    []string{"python"},
		},
		{
			name:     "Trailing punctuation stays outside the mask",
			input:    "stop that walrus!",
			expected: "stop that ******!",
			words:    []string{"walrus"},
		},
		{
			name:     "Nothing to censor",
			input:    "roomchat is amazing",
			expected: "roomchat is amazing",
			words:    nil,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.words, words, "expected=%s,words=%s", tt.expected, words)
		})
	}
}

// Dictionary entries that normalize to nothing must be dropped, not matched.
func TestModerator_NoiseOnlyDictionaryEntries(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"...", ",,,", "", "walrus"}
	mod, err := NewModerator(dictionary, replacementChar, discardLogger())
	req.NoError(err)

	content, words := mod.Censor("The walrus is safe")
	req.Equal("The ****** is safe", content)
	req.Equal([]string{"walrus"}, words)

	content, words = mod.Censor("Well then ...")
	req.Equal("Well then ...", content)
	req.Nil(words)
}

func TestModerator_UnusableDictionary(t *testing.T) {
	req := require.New(t)
	_, err := NewModerator([]string{"...", ""}, replacementChar, discardLogger())
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestModerator_ReviewTagsLanguage(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"walrus"}, replacementChar, discardLogger())
	req.NoError(err)

	report := mod.Review("this walrus sentence is clearly written in the english language")
	req.Equal("this ****** sentence is clearly written in the english language", report.Content)
	req.Equal([]string{"walrus"}, report.Censored)
	req.NotEmpty(report.Lang)

	clean := mod.Review("nothing to see here")
	req.Equal("nothing to see here", clean.Content)
	req.Empty(clean.Censored)
	req.Empty(clean.Lang)
}

func TestLoadWordlists(t *testing.T) {
	req := require.New(t)

	data, err := LoadWordlists()
	req.NoError(err)
	req.NotEmpty(data.Words)
	req.Contains(data.Languages, "en")
	req.Contains(data.Languages, "fr")

	// The loaded dictionary must build a working moderator
	mod, err := NewModerator(data.Words, replacementChar, discardLogger())
	req.NoError(err)

	content, words := mod.Censor("what an idiot move")
	req.Equal("what an ***** move", content)
	req.Equal([]string{"idiot"}, words)
}

func TestLoadStoredWords(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	words, err := LoadStoredWords(db)
	req.NoError(err)
	req.Empty(words)

	err = db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(StoredWordKey("grobble"), nil); err != nil {
			return err
		}
		return txn.Set(StoredWordKey("zonk"), nil)
	})
	req.NoError(err)

	words, err = LoadStoredWords(db)
	req.NoError(err)
	req.ElementsMatch([]string{"grobble", "zonk"}, words)
}
