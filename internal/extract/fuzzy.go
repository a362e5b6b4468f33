package extract

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/kreeda-labs/backend-quotes/internal/catalog"
	"github.com/kreeda-labs/backend-quotes/internal/inquiry"
)

// Match scores above highConfidence anchor a mention to a product outright;
// scores between the two thresholds surface as an ambiguous-product gap;
// anything below mediumConfidence is ignored as noise.
const (
	highConfidence   = 90
	mediumConfidence = 75
)

// quantityWindow is how far back (in characters) from a product mention the
// extractor looks for a quantity.
const quantityWindow = 50

// Fuzzy extracts items offline by scoring body n-grams against the catalog
// names with a normalized edit-distance ratio. No network, fully
// deterministic.
type Fuzzy struct {
	Catalog *catalog.Catalog
}

// NewFuzzy builds the offline strategy over a loaded catalog.
func NewFuzzy(cat *catalog.Catalog) *Fuzzy {
	return &Fuzzy{Catalog: cat}
}

// Extract implements Extractor.
func (f *Fuzzy) Extract(_ context.Context, rawEmail string) (inquiry.ParsedEvent, error) {
	if strings.TrimSpace(rawEmail) == "" {
		return inquiry.ParsedEvent{}, fmt.Errorf("extract: empty email content")
	}
	body := cleanBody(splitBody(rawEmail))
	items, gaps := f.extractItems(body)
	return inquiry.ParsedEvent{
		EmailID:        EmailID(rawEmail),
		Sender:         parseSender(rawEmail),
		Subject:        parseSubject(rawEmail),
		ExtractedItems: items,
		GapsIdentified: gaps,
	}, nil
}

type ngram struct {
	text  string
	start int
	end   int
}

type scoredMatch struct {
	ngram
	product string
	score   int
}

func (f *Fuzzy) extractItems(body string) ([]inquiry.ExtractedItem, []inquiry.Gap) {
	matches := f.scoreNgrams(body)

	// Resolve overlaps: higher score first, longer text breaking ties.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return len(matches[i].text) > len(matches[j].text)
	})
	used := make([]bool, len(body))
	var final []scoredMatch
	for _, m := range matches {
		overlaps := false
		for i := m.start; i < m.end; i++ {
			if used[i] {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		for i := m.start; i < m.end; i++ {
			used[i] = true
		}
		final = append(final, m)
	}
	// Restore reading order so items come out the way the email mentions them.
	sort.Slice(final, func(i, j int) bool { return final[i].start < final[j].start })

	var items []inquiry.ExtractedItem
	var gaps []inquiry.Gap
	for _, m := range final {
		windowStart := m.start - quantityWindow
		if windowStart < 0 {
			windowStart = 0
		}
		qty := parseQuantity(body[windowStart:m.start])

		item := inquiry.ExtractedItem{
			MentionedAs: m.text,
			Quantity:    qty,
			Confidence:  inquiry.Confidence{Product: float64(m.score) / 100},
		}
		if qty != nil {
			item.Confidence.Quantity = 1
		}
		if m.score >= highConfidence {
			product := m.product
			item.ProductName = &product
			if qty == nil {
				gaps = append(gaps, inquiry.Gap{
					Type:    inquiry.GapMissingQuantity,
					Details: fmt.Sprintf("Product '%s' was identified, but no quantity was found nearby.", product),
				})
			}
		} else {
			gaps = append(gaps, inquiry.Gap{
				Type:    inquiry.GapAmbiguousProduct,
				Details: fmt.Sprintf("Request '%s' is ambiguous. Best guess: '%s'.", m.text, m.product),
			})
		}
		items = append(items, item)
	}

	if len(items) == 0 && len(gaps) == 0 {
		gaps = append(gaps, inquiry.Gap{
			Type:    inquiry.GapUnknownProduct,
			Details: "No product was matched to any known product.",
		})
	}
	return items, gaps
}

func (f *Fuzzy) scoreNgrams(body string) []scoredMatch {
	names := f.Catalog.Names()
	maxWords := 1
	for _, name := range names {
		if n := len(strings.Fields(name)); n > maxWords {
			maxWords = n
		}
	}
	maxWords++

	tokenRe := regexp.MustCompile(`\S+`)
	tokens := tokenRe.FindAllStringIndex(body, -1)

	var matches []scoredMatch
	for n := 1; n <= maxWords; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			start, end := tokens[i][0], tokens[i+n-1][1]
			text := body[start:end]
			if len(text) < 4 {
				continue
			}
			product, score := f.bestMatch(text)
			if score >= mediumConfidence {
				matches = append(matches, scoredMatch{
					ngram:   ngram{text: text, start: start, end: end},
					product: product,
					score:   score,
				})
			}
		}
	}
	return matches
}

func (f *Fuzzy) bestMatch(text string) (string, int) {
	best := ""
	bestScore := -1
	for _, name := range f.Catalog.Names() {
		if s := similarity(text, name); s > bestScore {
			best, bestScore = name, s
		}
	}
	return best, bestScore
}

// similarity maps edit distance to a 0..100 ratio, case-folded.
func similarity(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 100
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(dist)/float64(longest))))
}

var (
	fromRe       = regexp.MustCompile(`(?m)^From:\s*(.*?)\s*<([^>]+)>|^From:\s*([^\s@]+@[^\s@]+\.[^\s@]+)`)
	subjectRe    = regexp.MustCompile(`(?m)^Subject:\s*(.*)`)
	signOffRe    = regexp.MustCompile(`(?i)\b(Best regards|Sincerely|Thank you|Thanks|Cheers|Regards|Best)\b`)
	salutationRe = regexp.MustCompile(`(?i)^(Dear|Hi|Hello)\b`)
	headerRe     = regexp.MustCompile(`(?i)^(From|To|Subject|Date|Sent):`)
	blankLineRe  = regexp.MustCompile(`\n\s*\n`)
	digitsRe     = regexp.MustCompile(`\b\d+\b`)
)

func parseSender(content string) inquiry.Sender {
	sender := inquiry.Sender{Email: "unknown@example.com"}

	if m := fromRe.FindStringSubmatch(content); m != nil {
		switch {
		case m[1] != "" && m[2] != "":
			name := strings.TrimSpace(m[1])
			sender.Name = &name
			sender.Email = strings.TrimSpace(m[2])
		case m[3] != "":
			sender.Email = strings.TrimSpace(m[3])
		}
	}

	if sender.Name == nil {
		if name := signatureName(content); name != "" {
			sender.Name = &name
		}
	}
	return sender
}

// signatureName looks for a plausible name on the lines after a sign-off.
func signatureName(content string) string {
	loc := signOffRe.FindStringIndex(content)
	if loc == nil {
		return ""
	}
	found := ""
	for _, line := range strings.Split(content[loc[1]:], "\n") {
		candidate := strings.Trim(strings.TrimSpace(line), ",- ")
		if candidate == "" {
			continue
		}
		if len(candidate) > 1 && len(strings.Fields(candidate)) <= 2 &&
			!strings.ContainsAny(candidate, "@<>") {
			found = candidate
		}
	}
	return found
}

func parseSubject(content string) string {
	if m := subjectRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return "No Subject"
}

// splitBody returns the text after the header block (first blank line).
func splitBody(content string) string {
	if loc := blankLineRe.FindStringIndex(content); loc != nil {
		return content[loc[1]:]
	}
	return content
}

// cleanBody strips quoted replies and forwarded headers, cuts at the
// sign-off, and skips the salutation line.
func cleanBody(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		kept = append(kept, line)
	}
	text = strings.Join(kept, "\n")

	if loc := signOffRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	lines := strings.Split(text, "\n")
	start := 0
	for i, line := range lines {
		if salutationRe.MatchString(strings.TrimSpace(line)) {
			start = i + 1
			break
		}
	}

	var out []string
	for _, line := range lines[start:] {
		if headerRe.MatchString(strings.TrimSpace(line)) {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

var numberWords = []struct {
	word string
	num  int
}{
	// Longer phrases first so "a dozen" wins over "dozen".
	{"a couple", 2},
	{"a dozen", 12},
	{"dozen", 12},
	{"three", 3},
	{"seven", 7},
	{"eight", 8},
	{"four", 4},
	{"five", 5},
	{"nine", 9},
	{"one", 1},
	{"two", 2},
	{"six", 6},
	{"ten", 10},
}

func parseQuantity(text string) *int {
	folded := strings.ToLower(text)
	for _, entry := range numberWords {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(entry.word) + `\b`)
		if re.MatchString(folded) {
			n := entry.num
			return &n
		}
	}
	if m := digitsRe.FindString(text); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return &n
		}
	}
	return nil
}
