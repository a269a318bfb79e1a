package matcher

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Text similarity primitives used by the feature extractor and the
// deduplicator. Descriptions from OCR extractions are noisy, so every
// comparison runs over normalized text: lowercased, punctuation replaced
// by spaces.

const (
	minKeyTermLength   = 3
	maxNumericTokenLen = 8
	sharedSubstringLen = 4
)

// normalizeText lowercases s and replaces every non-alphanumeric rune
// with a space.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// cleanTokens tokenizes normalized text for sequence comparison, dropping
// short tokens and long numeric tokens (account numbers, timestamps) that
// add noise without signal.
func cleanTokens(s string) []string {
	var tokens []string
	for _, token := range strings.Fields(normalizeText(s)) {
		if len(token) <= 2 {
			continue
		}
		if isNumeric(token) && len(token) > maxNumericTokenLen {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// keyTerms returns the set of alphanumeric tokens of at least three
// characters.
func keyTerms(s string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, token := range strings.Fields(normalizeText(s)) {
		if len(token) >= minKeyTermLength {
			terms[token] = struct{}{}
		}
	}
	return terms
}

// sequenceRatio is a normalized edit-distance similarity in [0,1]:
// 1 − levenshtein/maxLen over the two strings.
func sequenceRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	dist := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	ratio := 1 - float64(dist)/float64(maxLen)
	if ratio < 0 {
		return 0
	}
	return ratio
}

// jaccardSimilarity computes |A∩B| / |A∪B| over two term sets.
func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for term := range a {
		if _, ok := b[term]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// hasSharedSubstring reports whether a and b share any run of at least
// sharedSubstringLen characters once spaces are removed. Shared codes and
// references survive this check even when the surrounding text differs.
func hasSharedSubstring(a, b string) bool {
	ca := strings.ReplaceAll(normalizeText(a), " ", "")
	cb := strings.ReplaceAll(normalizeText(b), " ", "")
	if len(ca) < sharedSubstringLen || len(cb) < sharedSubstringLen {
		return false
	}
	// Scan n-grams of the shorter string against the longer.
	if len(ca) > len(cb) {
		ca, cb = cb, ca
	}
	for i := 0; i+sharedSubstringLen <= len(ca); i++ {
		if strings.Contains(cb, ca[i:i+sharedSubstringLen]) {
			return true
		}
	}
	return false
}

// DescriptionSimilarity scores how alike two transaction descriptions
// are: a weighted blend of sequence alignment over cleaned tokens,
// Jaccard similarity over key terms, and a bonus for any shared code-like
// substring.
func DescriptionSimilarity(a, b string) float64 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0
	}
	if normalizeText(a) == normalizeText(b) {
		return 1.0
	}

	seq := sequenceRatio(strings.Join(cleanTokens(a), " "), strings.Join(cleanTokens(b), " "))
	jac := jaccardSimilarity(keyTerms(a), keyTerms(b))

	bonus := 0.0
	if hasSharedSubstring(a, b) {
		bonus = 1.0
	}

	return 0.35*seq + 0.45*jac + 0.20*bonus
}

// VendorSimilarity scores vendor-name agreement in tiers: exact
// normalized match, substring containment, majority token overlap, then
// raw sequence ratio.
func VendorSimilarity(a, b string) float64 {
	na := normalizeText(a)
	nb := normalizeText(b)
	if na == "" || nb == "" {
		return 0
	}

	if na == nb {
		return 1.0
	}
	if strings.Contains(nb, na) || strings.Contains(na, nb) {
		return 0.9
	}
	if tokenOverlapRatio(na, nb) >= 0.5 {
		return 0.85
	}
	return sequenceRatio(na, nb)
}

// tokenOverlapRatio returns the share of the smaller token set present in
// the larger one.
func tokenOverlapRatio(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	set := make(map[string]struct{}, len(tb))
	for _, token := range tb {
		set[token] = struct{}{}
	}
	shared := 0
	for _, token := range ta {
		if _, ok := set[token]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ta))
}

// InvoiceNumberMatch scores invoice-number agreement in tiers: exact,
// equal after stripping non-alphanumerics, raw containment, stripped
// containment, else zero. The bank side may be a full description when no
// invoice number was extracted from the statement line.
func InvoiceNumberMatch(invoiceNumber, bankValue string) float64 {
	a := strings.ToUpper(strings.TrimSpace(invoiceNumber))
	b := strings.ToUpper(strings.TrimSpace(bankValue))
	if a == "" || b == "" {
		return 0
	}

	if a == b {
		return 1.0
	}

	sa := stripNonAlnum(a)
	sb := stripNonAlnum(b)
	if sa != "" && sa == sb {
		return 0.95
	}
	if strings.Contains(b, a) || strings.Contains(a, b) {
		return 0.9
	}
	if sa != "" && sb != "" && (strings.Contains(sb, sa) || strings.Contains(sa, sb)) {
		return 0.85
	}
	return 0
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
