package enrich

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	summarySentences = 2
	titleWords       = 3
	fallbackTitle    = "Voice Note"
)

var (
	speakerPrefix = regexp.MustCompile(`(?i)\bspeaker\s*\d+\s*:\s*`)
	sentenceEnd   = regexp.MustCompile(`[.!?]+(\s+|$)`)
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again all also am an and any are as at be because been
		before being below between both but by can could did do does doing down during each few for from
		further get got had has have having he her here hers him his how i if in into is it its itself just
		let like looks me more most my no nor not now of off ok okay on once only or other our ours out over
		own really same she should so some such than that the their theirs them then there these they this
		those through to too um uh under until up us very was we well were what when where which while who
		whom why will with would yeah yes you your yours great need next`) {
		stopwords[w] = struct{}{}
	}
}

// Extractive summarizes by picking the highest-scoring sentences of the transcript.
// Output depends only on the input text.
type Extractive struct{}

func (Extractive) Summarize(ctx context.Context, transcript string) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	text := cleanTranscript(transcript)
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return Summary{}, ErrEmptySummary
	}

	freq := termFrequencies(text)

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		words := tokenize(s)
		var total float64
		for _, w := range words {
			total += float64(freq[w])
		}
		if len(words) > 0 {
			total /= float64(len(words))
		}
		ranked[i] = scored{i, total}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	n := min(summarySentences, len(ranked))
	picked := make([]int, n)
	for i := 0; i < n; i++ {
		picked[i] = ranked[i].idx
	}
	sort.Ints(picked)

	parts := make([]string, n)
	for i, idx := range picked {
		parts[i] = sentences[idx]
	}

	return Summary{
		Text:  strings.Join(parts, " "),
		Title: DeriveTitle(transcript),
	}, nil
}

// DeriveTitle builds a short title from the most frequent content words.
// Ties go to the word that appears first.
func DeriveTitle(transcript string) string {
	text := cleanTranscript(transcript)
	freq := termFrequencies(text)

	var order []string
	seen := make(map[string]bool)
	for _, w := range tokenize(text) {
		if _, stop := stopwords[w]; stop || seen[w] || len(w) < 3 {
			continue
		}
		seen[w] = true
		order = append(order, w)
	}
	if len(order) == 0 {
		return fallbackTitle
	}

	sort.SliceStable(order, func(a, b int) bool { return freq[order[a]] > freq[order[b]] })
	if len(order) > titleWords {
		order = order[:titleWords]
	}

	for i, w := range order {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		order[i] = string(r)
	}
	return strings.Join(order, " ")
}

// cleanTranscript drops speaker labels and folds whitespace
func cleanTranscript(s string) string {
	s = speakerPrefix.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start:loc[1]]); s != "" {
			out = append(out, capitalize(s))
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, capitalize(s)+".")
	}
	return out
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, w := range tokenize(text) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		freq[w]++
	}
	return freq
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func capitalize(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
