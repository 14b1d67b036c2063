// Package policy implements the keyword-driven turn policy: a pure,
// deterministic mapping from recognized text to a reply, with tone-dependent
// canned phrases. It keeps no state and performs no I/O, so it can be swapped
// for any other policy without touching the session core.
package policy

import "strings"

// Tone selects between the casual and the formal phrase tables.
type Tone string

const (
	ToneFriendly Tone = "friendly"
	ToneFormal   Tone = "formal"
)

// ToneOf normalizes a profile's tone designation. Anything that does not
// declare itself friendly is treated as formal.
func ToneOf(designation string) Tone {
	if strings.Contains(strings.ToLower(designation), "friendly") ||
		strings.Contains(strings.ToLower(designation), "vriendelijk") {
		return ToneFriendly
	}
	return ToneFormal
}

// Greeting returns the session-opening line for a tone.
func Greeting(tone Tone) string {
	if tone == ToneFriendly {
		return "Hallo! Ik ben Vitallic, je persoonlijke AI assistent. Hoe kan ik je vandaag helpen?"
	}
	return "Goedendag. U spreekt met Vitallic. Waarmee kan ik u van dienst zijn?"
}

type phraseSet struct {
	keywords []string
	friendly string
	formal   string
}

var phraseSets = []phraseSet{
	{
		keywords: []string{"hallo", "hoi", "hey"},
		friendly: "Hallo! Leuk je te horen. Hoe gaat het met je?",
		formal:   "Goedendag. Waarmee kan ik u helpen?",
	},
	{
		keywords: []string{"hoe gaat het", "alles goed"},
		friendly: "Met mij gaat het uitstekend, dank je! En met jou?",
		formal:   "Met mij gaat het uitstekend, dank je! En met jou?",
	},
	{
		keywords: []string{"wat kun je", "wat kan je"},
		friendly: "Ik kan je helpen met verschillende taken, gesprekken voeren, en vragen beantwoorden. Vertel me waar je hulp bij nodig hebt!",
		formal:   "Ik kan je helpen met verschillende taken, gesprekken voeren, en vragen beantwoorden. Vertel me waar je hulp bij nodig hebt!",
	},
	{
		keywords: []string{"bedankt", "dank je"},
		friendly: "Graag gedaan! Altijd fijn om te helpen!",
		formal:   "U bent van harte welkom. Kan ik u nog ergens anders mee helpen?",
	},
	{
		keywords: []string{"doei", "tot ziens", "dag"},
		friendly: "Tot snel! Fijne dag nog!",
		formal:   "Goedendag. Tot de volgende keer.",
	},
}

// Reply maps recognized text to a reply. Matching is case-insensitive
// substring membership over a fixed set of greeting, small-talk and closing
// phrases; unmatched input falls through to a prompt for elaboration.
func Reply(userText string, tone Tone) string {
	input := strings.ToLower(userText)

	for _, set := range phraseSets {
		for _, keyword := range set.keywords {
			if strings.Contains(input, keyword) {
				if tone == ToneFriendly {
					return set.friendly
				}
				return set.formal
			}
		}
	}

	if tone == ToneFriendly {
		return "Dat is interessant! Vertel me daar eens meer over."
	}
	return "Ik begrijp het. Kunt u daar verder op ingaan?"
}
