// ABOUTME: Smalltalk classifier for trivial conversational turns
// ABOUTME: Greetings, thanks and farewells get a canned reply and skip retrieval
package core

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the classification of one inbound question
type Kind int

const (
	Substantive Kind = iota
	Greeting
	Thanks
	Goodbye
)

func (k Kind) String() string {
	switch k {
	case Greeting:
		return "greeting"
	case Thanks:
		return "thanks"
	case Goodbye:
		return "goodbye"
	default:
		return "substantive"
	}
}

// IsSmalltalk reports whether k short-circuits the pipeline
func (k Kind) IsSmalltalk() bool {
	return k != Substantive
}

// Reply returns the canned answer for a smalltalk kind.
// Substantive has no canned reply.
func (k Kind) Reply() string {
	switch k {
	case Greeting:
		return "Hej! Jag är FK-Guiden. Vad vill du veta om Försäkringskassan?"
	case Thanks:
		return "Varsågod! Hör av dig om du har fler frågor om Försäkringskassan."
	case Goodbye:
		return "Hej då! Lycka till med ditt ärende hos Försäkringskassan."
	default:
		return ""
	}
}

// maxAckRunes caps the input length the acknowledgement detector accepts
const maxAckRunes = 24

var goodbyePhrases = map[string]struct{}{
	"hej då":          {},
	"hejdå":           {},
	"hej hej då":      {},
	"hej så länge":    {},
	"adjö":            {},
	"vi ses":          {},
	"vi hörs":         {},
	"ha det bra":      {},
	"ha det":          {},
	"ha en bra dag":   {},
	"tack och hej":    {},
	"farväl":          {},
	"bye":             {},
	"bye bye":         {},
	"goodbye":         {},
	"good bye":        {},
	"see you":         {},
	"see you later":   {},
	"have a nice day": {},
}

var greetingPhrases = map[string]struct{}{
	"hej":             {},
	"hej hej":         {},
	"hejsan":          {},
	"hejhej":          {},
	"hallå":           {},
	"hallå där":       {},
	"tjena":           {},
	"tjenare":         {},
	"tja":             {},
	"morsning":        {},
	"god morgon":      {},
	"godmorgon":       {},
	"god dag":         {},
	"goddag":          {},
	"god eftermiddag": {},
	"god kväll":       {},
	"hello":           {},
	"hi":              {},
	"hey":             {},
	"good morning":    {},
	"good evening":    {},
}

var (
	thanksPattern = regexp.MustCompile(`^(tusen |stort |jätte ?|ett stort )?tack( så (mycket|mkt|jättemycket))?( för (hjälpen|svaret|det|informationen|infon|allt))?( igen)?$|^tackar( så mycket)?$|^(thanks|thank you|thx|ty|tnx)( so much| a lot| very much)?( for (the|your) help)?$`)
	ackPattern    = regexp.MustCompile(`^(ok|okej|okay|oki|okidoki|toppen|perfekt|bra|super|kanon|fint|utmärkt|jaha|aha|ah|great|nice|cool|got it|alright)( (ok|okej|tack|bra|då|toppen|perfekt|thanks))*$`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// Normalize trims, lowercases, strips terminal punctuation and collapses whitespace
func Normalize(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = spacePattern.ReplaceAllString(s, " ")
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.Is(unicode.So, r)
	})
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

// Classify maps an inbound question to its smalltalk kind.
// Empty input is treated as a greeting.
func Classify(input string) Kind {
	s := Normalize(input)
	if s == "" {
		return Greeting
	}
	if _, ok := goodbyePhrases[s]; ok {
		return Goodbye
	}
	if _, ok := greetingPhrases[s]; ok {
		return Greeting
	}
	if thanksPattern.MatchString(s) {
		return Thanks
	}
	if utf8.RuneCountInString(s) <= maxAckRunes && ackPattern.MatchString(s) {
		return Thanks
	}
	return Substantive
}
