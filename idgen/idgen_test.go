package idgen_test

import (
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bravado-dev/go-accounts/idgen"
)

func TestGenerateRoundTrip(t *testing.T) {
	prefixes := []string{"USR", "FIL", "ORD", "A"}

	for _, prefix := range prefixes {
		for _, n := range []int{1, 4, 8, 16} {
			id := idgen.GenerateN(prefix, n)
			assert.True(t, idgen.IsValid(id, prefix), "generated id %q should validate against prefix %q", id, prefix)
		}
	}
}

func TestGenerateDefaultSuffixLength(t *testing.T) {
	id := idgen.Generate("USR")

	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "USR", parts[0])
	assert.Len(t, parts[1], 14)
	assert.Len(t, parts[2], idgen.DefaultSuffixLength)
}

func TestGenerateNClampsNonPositiveLength(t *testing.T) {
	id := idgen.GenerateN("USR", 0)
	assert.True(t, idgen.IsValid(id, "USR"))

	id = idgen.GenerateN("USR", -3)
	assert.True(t, idgen.IsValid(id, "USR"))
}

func TestGenerateWithFixedClock(t *testing.T) {
	fixed := time.Date(2025, 10, 3, 14, 30, 25, 0, time.UTC)
	gen := idgen.New(idgen.WithClock(func() time.Time { return fixed }))

	id := gen.Generate("USR")

	assert.Regexp(t, regexp.MustCompile(`^USR-20251003143025-[A-Z0-9]{4}$`), id)
}

func TestGenerateWithDeterministicRand(t *testing.T) {
	fixed := time.Date(2025, 10, 3, 14, 30, 25, 0, time.UTC)
	gen := idgen.New(
		idgen.WithClock(func() time.Time { return fixed }),
		idgen.WithRand(func(n int) int { return 0 }),
	)

	assert.Equal(t, "USR-20251003143025-AAAA", gen.Generate("USR"))
}

func TestIsValidRejections(t *testing.T) {
	cases := []struct {
		name string
		id   string
	}{
		{name: "empty", id: ""},
		{name: "wrong prefix", id: "ORD-20251003143025-AB12"},
		{name: "prefix is a superstring", id: "USRX-20251003143025-AB12"},
		{name: "13 timestamp digits", id: "USR-2025100314302-AB12"},
		{name: "15 timestamp digits", id: "USR-202510031430255-AB12"},
		{name: "lowercase suffix", id: "USR-20251003143025-ab12"},
		{name: "empty suffix", id: "USR-20251003143025-"},
		{name: "missing suffix hyphen", id: "USR-20251003143025AB12"},
		{name: "suffix with hyphen", id: "USR-20251003143025-AB-12"},
		{name: "non digit timestamp", id: "USR-2025100314302X-AB12"},
		{name: "prefix only", id: "USR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, idgen.IsValid(tc.id, "USR"))
		})
	}
}

func TestIsValidEmptyPrefix(t *testing.T) {
	assert.False(t, idgen.IsValid("USR-20251003143025-AB12", ""))
}

func TestGenerateConcurrentUniqueness(t *testing.T) {
	const (
		workers       = 20
		perWorker     = 500
		total         = workers * perWorker
		minimumUnique = total - 10
	)

	results := make(chan string, total)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				results <- idgen.Generate("USR")
			}
		}()
	}

	wg.Wait()
	close(results)

	seen := make(map[string]struct{}, total)
	for id := range results {
		seen[id] = struct{}{}
	}

	// The birthday bound at 36^4 suffixes per second makes a handful of
	// collisions possible, full uniqueness likely.
	assert.GreaterOrEqual(t, len(seen), minimumUnique)
}
