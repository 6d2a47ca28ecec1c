package region

// DefaultThreshold is the minimum Ratio a token needs to resolve to a code.
const DefaultThreshold = 70.0

// Policy decides what happens to tokens that are never scored
// (shorter than two runes or containing a digit).
type Policy int

const (
	// PolicyReport reports ineligible tokens as unresolved.
	PolicyReport Policy = iota
	// PolicySkip drops ineligible tokens silently.
	PolicySkip
)

// Match is a token resolved to a region code.
type Match struct {
	Word  string  // original word as typed
	Code  string  // canonical region code
	Score float64 // Ratio of the best variant, 0-100
}

// Result splits a list of words into resolved and unresolved ones.
// Both slices preserve input order; Resolved may contain the same code twice.
type Result struct {
	Resolved   []Match
	Unresolved []string
	Skipped    []string
}

// Codes returns the resolved codes in input order, duplicates included.
func (r Result) Codes() []string {
	codes := make([]string, len(r.Resolved))
	for i, m := range r.Resolved {
		codes[i] = m.Code
	}
	return codes
}

// Resolver matches words against a Dictionary.
type Resolver struct {
	dict      *Dictionary
	threshold float64
	policy    Policy
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(threshold float64) Option {
	return func(r *Resolver) {
		r.threshold = threshold
	}
}

// WithPolicy sets the policy for tokens that are never scored.
func WithPolicy(p Policy) Option {
	return func(r *Resolver) {
		r.policy = p
	}
}

// NewResolver creates a resolver over dict.
func NewResolver(dict *Dictionary, opts ...Option) *Resolver {
	r := &Resolver{
		dict:      dict,
		threshold: DefaultThreshold,
		policy:    PolicyReport,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dictionary returns the dictionary the resolver matches against.
func (r *Resolver) Dictionary() *Dictionary {
	return r.dict
}

// Resolve finds the best region code for word.
//
// Codes are scanned in ascending order and the running best is replaced only
// by a strictly higher score, so on a tie the smallest code wins. The second
// return value is false when no code reaches the threshold or the word is
// not eligible for scoring.
func (r *Resolver) Resolve(word string) (Match, bool) {
	key := Normalize(word)
	if !eligible(key) {
		return Match{Word: word}, false
	}
	return r.best(word, key)
}

func (r *Resolver) best(word, key string) (Match, bool) {
	m := Match{Word: word, Score: -1}
	if r.dict == nil {
		return m, false
	}

	for _, code := range r.dict.codes {
		score := bestVariantScore(key, r.dict.variants[code])
		if score > m.Score {
			m.Code = code
			m.Score = score
		}
	}

	if m.Code == "" || m.Score < r.threshold {
		return Match{Word: word, Score: max(m.Score, 0)}, false
	}
	return m, true
}

func bestVariantScore(key string, variants []string) float64 {
	best := 0.0
	for _, v := range variants {
		if v == key {
			return 100
		}
		if s := Ratio(key, v); s > best {
			best = s
		}
	}
	return best
}

// ResolveAll resolves every word independently.
func (r *Resolver) ResolveAll(words []string) Result {
	var res Result
	for _, word := range words {
		key := Normalize(word)
		if !eligible(key) {
			if r.policy == PolicySkip {
				res.Skipped = append(res.Skipped, word)
			} else {
				res.Unresolved = append(res.Unresolved, word)
			}
			continue
		}
		if m, ok := r.best(word, key); ok {
			res.Resolved = append(res.Resolved, m)
		} else {
			res.Unresolved = append(res.Unresolved, word)
		}
	}
	return res
}
