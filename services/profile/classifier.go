package profile

import (
	"regexp"
	"strings"
	"unicode"
)

// Profile is the heuristically classified intent category of a request
type Profile string

const (
	General      Profile = "general"
	LongForm     Profile = "long_form"
	Deliberative Profile = "deliberative"
	Coding       Profile = "coding"
	Multilingual Profile = "multilingual"
)

// Hints carries the caller's explicit routing hints
type Hints struct {
	// Mode is an explicit profile request ("coding", "general", ...)
	Mode string

	// TargetWords is the declared target output size; values at or above the
	// classifier's long-form threshold force the long_form profile
	TargetWords int
}

// Classifier derives a generation profile from conversation text.
// All methods are pure; a zero-configured classifier uses sensible defaults.
type Classifier struct {
	// LongFormWords is the word-count threshold (hint or raw text) above
	// which a request is treated as long-form
	LongFormWords int
}

// NewClassifier creates a classifier with the given long-form threshold
func NewClassifier(longFormWords int) *Classifier {
	if longFormWords <= 0 {
		longFormWords = 800
	}
	return &Classifier{LongFormWords: longFormWords}
}

var (
	codeFenceRe   = regexp.MustCompile("```")
	codeKeywordRe = regexp.MustCompile(`(?i)\b(func|def|class|import|return|const|var|struct|impl|lambda)\b`)
	shellRe       = regexp.MustCompile(`(?i)\b(npm install|pip install|go get|apt-get|brew install|cargo add)\b`)
	sqlRe         = regexp.MustCompile(`(?i)\b(select\s+.+\s+from|insert\s+into|create\s+table|alter\s+table)\b`)

	deliberateRe = regexp.MustCompile(`(?i)\b(think step by step|step-by-step|prove|derive|chain of thought|show your reasoning|rigorous(ly)?)\b`)

	longFormRe = regexp.MustCompile(`(?i)\b(write (an?|the) (essay|article|report|story|novel|chapter|whitepaper)|in \d{3,} words|long-?form|detailed (guide|report))\b`)

	languageRe = regexp.MustCompile(`(?i)\b(in (spanish|french|german|chinese|japanese|korean|arabic|russian|portuguese|italian|hindi)|translate to)\b`)
)

// Classify inspects conversation text plus explicit hints and returns a
// profile. Rules run in fixed priority order; the first match wins.
func (c *Classifier) Classify(text string, hints Hints) Profile {
	if hints.Mode == string(Coding) || looksLikeCode(text) {
		return Coding
	}

	if hints.Mode == string(Deliberative) || deliberateRe.MatchString(text) {
		return Deliberative
	}

	if hints.Mode == string(LongForm) ||
		(hints.TargetWords > 0 && hints.TargetWords >= c.LongFormWords) ||
		longFormRe.MatchString(text) ||
		wordCount(text) >= c.LongFormWords {
		return LongForm
	}

	if hints.Mode == string(Multilingual) || languageRe.MatchString(text) || mostlyNonASCII(text) {
		return Multilingual
	}

	return General
}

func looksLikeCode(text string) bool {
	return codeFenceRe.MatchString(text) ||
		codeKeywordRe.MatchString(text) ||
		shellRe.MatchString(text) ||
		sqlRe.MatchString(text)
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

// mostlyNonASCII reports whether more than a tenth of the letters fall
// outside ASCII, a cheap signal for non-English content.
func mostlyNonASCII(text string) bool {
	var letters, nonASCII int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r > unicode.MaxASCII {
			nonASCII++
		}
	}
	return letters > 0 && nonASCII*10 > letters
}
