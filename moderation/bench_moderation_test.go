package moderation

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// Startup cost of a large operator dictionary, then censor throughput once
// the automaton is built.
func Test_Moderation_Benchmark(t *testing.T) {
	if testing.Short() {
		t.Skip("seeds a 100k word dictionary, skipped in short mode")
	}

	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	const wordCount = 100_000

	// 1. Seed the operator dictionary, one key per word.
	startSeed := time.Now()
	wb := db.NewWriteBatch()
	for i := 0; i < wordCount; i++ {
		req.NoError(wb.Set(StoredWordKey(fmt.Sprintf("variant%dword", i)), nil))
	}
	req.NoError(wb.Flush())
	fmt.Printf("✅ Seeded %d words in %v\n", wordCount, time.Since(startSeed))

	// 2. Load through the production path and build the automaton.
	startLoad := time.Now()
	words, err := LoadStoredWords(db)
	req.NoError(err)
	req.Len(words, wordCount)
	fmt.Printf("✅ Loaded the dictionary in %v\n", time.Since(startLoad))

	startBuild := time.Now()
	mod, err := NewModerator(words, '*', log)
	req.NoError(err)
	fmt.Printf("✅ Built the automaton in %v\n", time.Since(startBuild))
	fmt.Printf("🚀 Moderation startup without seeding: %v\n", time.Since(startLoad))

	// 3. Censor a mixed corpus, one flagged line in ten.
	const corpusSize = 10_000
	corpus := make([]string, 0, corpusSize)
	for i := 0; i < corpusSize; i++ {
		if i%10 == 0 {
			corpus = append(corpus, fmt.Sprintf("please stop posting variant%dword in here", i))
		} else {
			corpus = append(corpus, "nothing objectionable in this line at all")
		}
	}

	startCensor := time.Now()
	var flagged int
	for _, line := range corpus {
		if _, hits := mod.Censor(line); len(hits) > 0 {
			flagged++
		}
	}
	elapsed := time.Since(startCensor)
	req.Equal(corpusSize/10, flagged)

	fmt.Printf("\n🚀 Censored %d messages in %v (%.0f msg/s)\n",
		len(corpus), elapsed, float64(len(corpus))/elapsed.Seconds())
}
