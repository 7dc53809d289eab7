package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/apperr"
)

// Rejection reasons returned by FilterContent.
const (
	ReasonLanguage    = "inappropriate_language"
	ReasonUnsafeTheme = "unsafe_theme"
	ReasonURL         = "url_not_allowed"
	ReasonContact     = "contact_info_not_allowed"
	ReasonSpam        = "spam_detected"
	ReasonCaps        = "excessive_caps"
)

// BannedWords are rejected anywhere in free text a child may end up reading.
var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt", "damn",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes", "sex", "sexy",
	"kill yourself", "kys",
	"spam", "scam", "scammer", "phishing", "malware",
}

// UnsafeThemes keep adult subjects out of picture books, even in words
// that are not profane.
var UnsafeThemes = []string{
	"suicide", "self harm", "self-harm",
	"drugs", "cocaine", "heroin", "meth",
	"alcohol", "beer", "vodka", "whiskey", "drunk",
	"cigarette", "cigarettes", "vape",
	"gore", "murder", "torture",
}

const (
	maxCharRun   = 5
	maxCapsWords = 2
)

var (
	urlPattern   = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	emailPattern = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.\s]?\d{4}|\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	capsPattern  = regexp.MustCompile(`\b[A-Z]{5,}\b`)
)

// contentRule rejects text for one reason. Rules run in table order and the
// first match wins.
type contentRule struct {
	reason  string
	message string
	match   func(text string) bool
}

// ModerationService screens the free-text story fields (special ability,
// special message, cover design) before they are stored.
type ModerationService struct {
	rules []contentRule
}

func NewModerationService() *ModerationService {
	return &ModerationService{rules: []contentRule{
		{ReasonLanguage, "contains language that is not suitable for a children's story.", wordList(BannedWords)},
		{ReasonUnsafeTheme, "mentions a topic that is not suitable for a children's story.", wordList(UnsafeThemes)},
		{ReasonURL, "must not contain URLs or web links.", urlPattern.MatchString},
		{ReasonContact, "must not contain contact information.", func(s string) bool {
			return emailPattern.MatchString(s) || phonePattern.MatchString(s)
		}},
		{ReasonSpam, "appears to be spam.", repeatedRun},
		{ReasonCaps, "uses too many capital letters.", func(s string) bool {
			return len(capsPattern.FindAllString(s, -1)) > maxCapsWords
		}},
	}}
}

// wordList matches any of words as a whole word, ignoring case.
func wordList(words []string) func(string) bool {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	return re.MatchString
}

// repeatedRun reports a run of maxCharRun identical letters or ! ? . marks.
func repeatedRun(text string) bool {
	var prev rune
	run := 0
	for _, r := range strings.ToLower(text) {
		if r == prev && (unicode.IsLetter(r) || r == '!' || r == '?' || r == '.') {
			run++
			if run >= maxCharRun {
				return true
			}
			continue
		}
		prev, run = r, 1
	}
	return false
}

// FilterContent reports whether text is acceptable, and if not, a reason code.
func (ms *ModerationService) FilterContent(text string) (bool, string) {
	if text == "" {
		return true, ""
	}
	for _, rule := range ms.rules {
		if rule.match(text) {
			return false, rule.reason
		}
	}
	return true, ""
}

func (ms *ModerationService) RejectionMessage(field, reason string) string {
	for _, rule := range ms.rules {
		if rule.reason == reason {
			return field + " " + rule.message
		}
	}
	return field + " does not meet our content guidelines."
}

// CheckFields screens each named value and returns a validation error for
// the first one that is rejected. Nil values are skipped.
func (ms *ModerationService) CheckFields(fields ...TextField) error {
	for _, f := range fields {
		if f.Value == nil {
			continue
		}
		if ok, reason := ms.FilterContent(*f.Value); !ok {
			return apperr.Validation(ms.RejectionMessage(f.Name, reason))
		}
	}
	return nil
}

type TextField struct {
	Name  string
	Value *string
}
