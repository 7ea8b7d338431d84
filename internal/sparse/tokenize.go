package sparse

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize lower-cases s and splits it into runs of letters, digits and
// underscore — a simple Unicode word-run tokenizer, not a code-aware
// identifier splitter. Query tokenization and corpus tokenization must
// use the same function so BM25 term lookups agree.
func Tokenize(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}
