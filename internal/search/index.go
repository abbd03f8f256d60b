package search

import (
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/prasenjit/go-meraki-mcp/internal/catalog"
	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// Scoring weights
const (
	overlapWeight = 1.0
	phraseBonus   = 2.0
	tagBonus      = 1.5

	DefaultLimit = 10
	MaxLimit     = 50
)

// Match is one ranked search hit
type Match struct {
	Operation *models.OperationSpec `json:"operation"`
	Score     float64               `json:"score"`
}

// Result is the outcome of Lookup
type Result struct {
	Query    string  `json:"query"`
	FastPath bool    `json:"fastPath"`
	Matches  []Match `json:"matches"`
}

type entry struct {
	op       *models.OperationSpec
	tokens   map[string]bool
	tags     map[string]bool
	phrases  []string // space-padded normalized description and id
	priority float64
}

type tables struct {
	entries  []entry
	fastPath map[string]*models.OperationSpec
}

// Index ranks catalog operations against free-form queries
type Index struct {
	cat     *catalog.Catalog
	intents map[string]string
	current atomic.Pointer[tables]
}

// NewIndex builds an index over cat with the default fast-path intents
func NewIndex(cat *catalog.Catalog) *Index {
	return NewIndexWithIntents(cat, DefaultIntents)
}

// NewIndexWithIntents builds an index with a custom fast-path table
func NewIndexWithIntents(cat *catalog.Catalog, intents map[string]string) *Index {
	idx := &Index{cat: cat, intents: make(map[string]string, len(intents))}
	for phrase, id := range intents {
		idx.intents[Normalize(phrase)] = id
	}
	idx.Rebuild()
	return idx
}

// Rebuild reconstructs the index tables from the catalog. Readers keep
// using the previous tables until the new ones are swapped in.
func (idx *Index) Rebuild() {
	ops := idx.cat.All()
	t := &tables{
		entries:  make([]entry, 0, len(ops)),
		fastPath: make(map[string]*models.OperationSpec, len(idx.intents)),
	}

	for _, op := range ops {
		t.entries = append(t.entries, buildEntry(op))
	}
	for phrase, id := range idx.intents {
		if op, err := idx.cat.Lookup(id); err == nil {
			t.fastPath[phrase] = op
		}
	}

	idx.current.Store(t)
}

func buildEntry(op *models.OperationSpec) entry {
	e := entry{
		op:       op,
		tokens:   make(map[string]bool),
		tags:     make(map[string]bool),
		priority: priority(op.ID),
	}

	// Identifier, section and tags carry the structured vocabulary and get synonyms
	var structured []string
	structured = append(structured, Tokenize(op.ID)...)
	structured = append(structured, Tokenize(op.Section)...)
	for _, tag := range op.Tags {
		for _, tok := range Tokenize(tag) {
			e.tags[tok] = true
			structured = append(structured, tok)
		}
	}
	for _, tok := range structured {
		e.tokens[tok] = true
		for _, syn := range synonyms[tok] {
			e.tokens[syn] = true
		}
	}

	for _, tok := range Tokenize(op.Description) {
		e.tokens[tok] = true
	}
	for _, segment := range strings.Split(op.PathTemplate, "/") {
		if segment == "" || strings.HasPrefix(segment, "{") {
			continue
		}
		for _, tok := range Tokenize(segment) {
			e.tokens[tok] = true
		}
	}

	e.phrases = []string{
		" " + Normalize(op.Description) + " ",
		" " + Normalize(op.ID) + " ",
	}
	return e
}

// priority prefers reads over writes and the most common entry points
func priority(id string) float64 {
	switch id {
	case "getOrganizations", "getDevice", "getNetworkClients":
		return 0.5
	}
	verb := ""
	if toks := Tokenize(id); len(toks) > 0 {
		verb = toks[0]
	}
	switch verb {
	case "get", "list":
		return 0.25
	case "update":
		return 0.15
	case "create":
		return 0.1
	case "delete":
		return 0.05
	}
	return 0
}

// ClampLimit bounds a requested result count to [1, MaxLimit]
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Search ranks operations by lexical similarity to query. Results are
// ordered by score descending, ties by catalog declaration order, and
// never include entries without at least one overlapping token.
func (idx *Index) Search(query string, limit int) []Match {
	limit = ClampLimit(limit)
	all := Tokenize(query)

	var terms []string
	seen := make(map[string]bool)
	for _, tok := range all {
		if stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, tok)
	}
	if len(terms) == 0 {
		return []Match{}
	}

	phrase := ""
	if len(all) >= 2 {
		phrase = " " + strings.Join(all, " ") + " "
	}

	t := idx.current.Load()
	matches := make([]Match, 0)
	for _, e := range t.entries {
		overlap := 0
		tags := 0
		for _, term := range terms {
			if e.tokens[term] {
				overlap++
			}
			if e.tags[term] {
				tags++
			}
		}
		if overlap == 0 {
			continue
		}

		score := float64(overlap)*overlapWeight + float64(tags)*tagBonus + e.priority
		if phrase != "" {
			for _, p := range e.phrases {
				if strings.Contains(p, phrase) {
					score += phraseBonus
					break
				}
			}
		}
		matches = append(matches, Match{Operation: e.op, Score: score})
	}

	// Entries are in declaration order, so a stable sort keeps ties deterministic
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// FastPath resolves an exact normalized intent to its operation
func (idx *Index) FastPath(query string) (*models.OperationSpec, bool) {
	op, ok := idx.current.Load().fastPath[Normalize(query)]
	return op, ok
}

// Lookup checks the fast-path table before falling back to scored search
func (idx *Index) Lookup(query string, limit int) Result {
	if op, ok := idx.FastPath(query); ok {
		return Result{
			Query:    query,
			FastPath: true,
			Matches:  []Match{{Operation: op, Score: math.MaxFloat64}},
		}
	}
	return Result{Query: query, Matches: idx.Search(query, limit)}
}
