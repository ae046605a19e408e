package services

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/tyler-smith/go-bip39/wordlists"
)

// wordlist is the BIP39 English wordlist (2048 words), giving plenty of
// variety for generated guest names.
var wordlist = wordlists.English

// GuestNamer generates display names for anonymous requesters who did not
// supply one.
type GuestNamer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGuestNamer creates a GuestNamer with its own random source.
func NewGuestNamer() *GuestNamer {
	return &GuestNamer{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateName returns a PascalCase name like "HappyTiger42".
func (g *GuestNamer) GenerateName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	word1 := wordlist[g.rng.Intn(len(wordlist))]
	word2 := wordlist[g.rng.Intn(len(wordlist))]
	num := g.rng.Intn(100)
	return fmt.Sprintf("%s%s%d", capitalize(word1), capitalize(word2), num)
}

// capitalize returns the string with its first letter uppercased.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
