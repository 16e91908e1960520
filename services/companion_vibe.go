// services/companion_vibe.go - Lexical heuristics for sentiment, vibe and style
package services

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"zentro/models"
)

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"

	maxRecollections  = 20
	minRecollectLen   = 12
	vibeWindow        = 5
	maxSentimentTrail = 50
)

var (
	positiveWords = []string{"good", "great", "awesome", "love", "like", "happy", "excited", "amazing"}
	negativeWords = []string{"bad", "hate", "sad", "angry", "frustrated", "terrible", "awful"}

	recollectionCues = []string{
		"i am", "i'm working on", "my project is", "i decided to", "i learned", "my goal is",
		"i plan to", "i started", "i want to", "i feel", "i think", "i like", "i love", "i completed",
	}

	highEnergyWords = []string{"awesome", "amazing", "excited", "love", "fantastic", "incredible", "wow", "yes!", "let's go"}
	lowEnergyWords  = []string{"tired", "meh", "okay", "fine", "whatever", "sure", "maybe"}
	casualWords     = []string{"hey", "yeah", "cool", "nice", "lol", "haha"}
	formalWords     = []string{"please", "thank you", "certainly", "however", "therefore"}

	wordPattern = regexp.MustCompile(`\b\w+\b`)
)

// styleRules map message keywords to a persona. The first matching rule wins.
var styleRules = []struct {
	persona  string
	keywords []string
}{
	{PersonaHackerBuddy, []string{"code", "debug", "error", "javascript", "python"}},
	{PersonaDaterCoach, []string{"date", "dating", "tinder", "profile bio"}},
	{PersonaContentBeast, []string{"blog", "writing", "content", "headline", "social media"}},
	{PersonaStrictManager, []string{"task", "deadline", "productivity", "focus", "manage time"}},
	{PersonaStudyBuddy, []string{"study", "learn", "homework", "assignment"}},
	{PersonaJournalCoach, []string{"feeling", "sad", "stressed", "down", "support"}},
}

// SelectStyle picks the interaction style for a message.
func SelectStyle(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range styleRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.persona
			}
		}
	}
	return DefaultPersona
}

// ClassifySentiment scores whole words against small positive and negative
// lexicons.
func ClassifySentiment(text string) string {
	score := 0
	for _, w := range strings.Split(strings.ToLower(text), " ") {
		if containsString(positiveWords, w) {
			score++
		}
		if containsString(negativeWords, w) {
			score--
		}
	}
	switch {
	case score > 0:
		return SentimentPositive
	case score < 0:
		return SentimentNegative
	}
	return SentimentNeutral
}

// CountWords returns the lowercase word counts of text.
func CountWords(text string) map[string]int {
	counts := make(map[string]int)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		counts[w]++
	}
	return counts
}

// splitSentences splits on . ! and ?, keeping each terminator with its
// sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			out = append(out, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// ExtractRecollections returns the declarative first-person sentences of
// text. Questions and exclamations are skipped.
func ExtractRecollections(text, day string) []models.Recollection {
	var out []models.Recollection
	for _, raw := range splitSentences(text) {
		sentence := strings.TrimSpace(raw)
		if strings.HasSuffix(sentence, "?") || strings.HasSuffix(sentence, "!") {
			continue
		}
		sentence = strings.TrimSpace(strings.TrimSuffix(sentence, "."))
		if utf8.RuneCountInString(sentence) <= minRecollectLen {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, cue := range recollectionCues {
			if strings.HasPrefix(lower, cue) || strings.Contains(lower, " "+cue+" ") {
				out = append(out, models.Recollection{Text: sentence, Date: day})
				break
			}
		}
	}
	return out
}

// mergeRecollections appends fresh entries not already present (ignoring
// case) and keeps the newest maxRecollections.
func mergeRecollections(existing, fresh []models.Recollection) []models.Recollection {
	out := append([]models.Recollection(nil), existing...)
	for _, r := range fresh {
		dup := false
		for _, e := range out {
			if strings.EqualFold(e.Text, r.Text) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, r)
		if len(out) > maxRecollections {
			out = out[len(out)-maxRecollections:]
		}
	}
	return out
}

// ReadVibe classifies a single message.
func ReadVibe(text string, at time.Time) models.VibeReading {
	lower := strings.ToLower(text)

	energy := 0
	for _, w := range highEnergyWords {
		if strings.Contains(lower, w) {
			energy += 2
		}
	}
	for _, w := range lowEnergyWords {
		if strings.Contains(lower, w) {
			energy--
		}
	}

	style := 0
	for _, w := range casualWords {
		if strings.Contains(lower, w) {
			style++
		}
	}
	for _, w := range formalWords {
		if strings.Contains(lower, w) {
			style--
		}
	}

	emojis := countEmoji(text)
	bangs := strings.Count(text, "!")
	length := utf8.RuneCountInString(text)

	r := models.VibeReading{At: at}
	switch {
	case energy > 2:
		r.EnergyLevel = "high"
	case energy < -1:
		r.EnergyLevel = "low"
	default:
		r.EnergyLevel = "medium"
	}
	switch {
	case emojis > 2:
		r.EmojiUsage = "high"
	case emojis == 0:
		r.EmojiUsage = "low"
	default:
		r.EmojiUsage = "moderate"
	}
	switch {
	case bangs > 1:
		r.Enthusiasm = "high"
	case bangs == 0:
		r.Enthusiasm = "low"
	default:
		r.Enthusiasm = "medium"
	}
	switch {
	case length > 100:
		r.ResponseLength = "long"
	case length < 20:
		r.ResponseLength = "short"
	default:
		r.ResponseLength = "medium"
	}
	switch {
	case style > 0:
		r.CommunicationStyle = "casual"
	case style < 0:
		r.CommunicationStyle = "formal"
	default:
		r.CommunicationStyle = "neutral"
	}
	return r
}

func countEmoji(text string) int {
	n := 0
	for _, r := range text {
		switch {
		case r >= 0x1F600 && r <= 0x1F64F,
			r >= 0x1F300 && r <= 0x1F5FF,
			r >= 0x1F680 && r <= 0x1F6FF,
			r >= 0x1F1E0 && r <= 0x1F1FF,
			r >= 0x2600 && r <= 0x26FF,
			r >= 0x2700 && r <= 0x27BF:
			n++
		}
	}
	return n
}

// Vibe is the overall vibe signature of a user.
type Vibe struct {
	EnergyLevel        string `json:"energy_level"`
	CommunicationStyle string `json:"communication_style"`
	EmojiUsage         string `json:"emoji_usage"`
	ResponseLength     string `json:"response_length"`
	Enthusiasm         string `json:"enthusiasm"`
}

// DefaultVibe is the signature before any message was read.
func DefaultVibe() Vibe {
	return Vibe{
		EnergyLevel:        "medium",
		CommunicationStyle: "casual",
		EmojiUsage:         "moderate",
		ResponseLength:     "medium",
		Enthusiasm:         "balanced",
	}
}

// pushVibe appends r and keeps the newest vibeWindow readings.
func pushVibe(window []models.VibeReading, r models.VibeReading) []models.VibeReading {
	out := append(append([]models.VibeReading(nil), window...), r)
	if len(out) > vibeWindow {
		out = out[len(out)-vibeWindow:]
	}
	return out
}

// OverallVibe is the per-dimension mode of the window.
func OverallVibe(window []models.VibeReading) Vibe {
	if len(window) == 0 {
		return DefaultVibe()
	}
	pick := func(field func(models.VibeReading) string) string {
		values := make([]string, len(window))
		for i, r := range window {
			values[i] = field(r)
		}
		return modeOf(values)
	}
	return Vibe{
		EnergyLevel:        pick(func(r models.VibeReading) string { return r.EnergyLevel }),
		CommunicationStyle: pick(func(r models.VibeReading) string { return r.CommunicationStyle }),
		EmojiUsage:         pick(func(r models.VibeReading) string { return r.EmojiUsage }),
		ResponseLength:     pick(func(r models.VibeReading) string { return r.ResponseLength }),
		Enthusiasm:         pick(func(r models.VibeReading) string { return r.Enthusiasm }),
	}
}

// modeOf returns the most frequent value; ties go to the most recent one.
func modeOf(values []string) string {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := "", 0
	for i := len(values) - 1; i >= 0; i-- {
		if c := counts[values[i]]; c > bestCount {
			best, bestCount = values[i], c
		}
	}
	return best
}

// dominantSentiment is the mode of the last n sentiment entries.
func dominantSentiment(trail []models.SentimentEntry, n int) string {
	if len(trail) > n {
		trail = trail[len(trail)-n:]
	}
	values := make([]string, len(trail))
	for i, e := range trail {
		values[i] = e.Sentiment
	}
	return modeOf(values)
}
