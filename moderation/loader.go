package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"roomchat/errors"
)

//go:embed wordlists/*.txt
var wordlistFS embed.FS

// storedWordPrefix scopes operator-added dictionary entries inside the
// message database. The word itself lives in the key, values stay empty.
const storedWordPrefix = "blacklist:"

// LoadedWords carries the parsed dictionaries plus metadata for logging.
type LoadedWords struct {
	Words     []string
	Languages []string
}

// LoadWordlists parses the embedded dictionaries, one .txt file per
// language, into a unique word list.
func LoadWordlists() (*LoadedWords, error) {
	entries, err := fs.ReadDir(wordlistFS, "wordlists")
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// The filename is the language tag (e.g. "fr.txt" -> "fr")
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := wordlistFS.ReadFile("wordlists/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}

	return &LoadedWords{Words: words, Languages: languages}, nil
}

// StoredWordKey builds the database key for an operator-added word.
func StoredWordKey(word string) []byte {
	return []byte(storedWordPrefix + word)
}

// LoadStoredWords reads the operator-added words from the database. An
// empty result is fine, the embedded lists remain the baseline.
func LoadStoredWords(db *badger.DB) ([]string, error) {
	var words []string
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // the words live in the keys
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(storedWordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			words = append(words, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return words, nil
}
