package progress

import "strings"

// Word lists driving title classification. Kept as named package variables
// so the table tests can pin them down.
var (
	// interrogativePrefixes mark a title as question-shaped.
	interrogativePrefixes = []string{
		"how do", "how does", "how can", "how is", "how are",
		"what is", "what are", "what does", "what happens",
		"why do", "why does", "why is", "why are",
		"when is", "when do", "when does",
		"where is", "where are", "where do",
		"who is", "who are",
		"which is", "which are",
		"can ", "could ", "should ", "would ", "is it", "are there",
	}

	// lessonStepPrefixes mark a title as a generated sub-lesson heading.
	lessonStepPrefixes = []string{
		"introduction to", "basic", "advanced", "understanding",
	}

	// lessonStepSubstrings anywhere in the title mark it as a sub-lesson.
	lessonStepSubstrings = []string{
		"overview", "fundamentals",
	}
)

// shortPhraseLimit is the length under which a non-interrogative title is
// treated as a sub-lesson heading rather than a user question.
const shortPhraseLimit = 30

// IsLikelyUserQuery reports whether a title reads as a top-level question
// the user typed, as opposed to a generated lesson-step heading. A title
// qualifies only when it starts with an interrogative prefix AND ends with a
// question mark AND is not caught by the lesson-step heuristic; the
// lesson-step heuristic wins even over a question-shaped title.
func IsLikelyUserQuery(title string) bool {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)
	if !hasInterrogativePrefix(lower) {
		return false
	}
	if !strings.HasSuffix(trimmed, "?") {
		return false
	}
	return !isLessonStep(lower)
}

func hasInterrogativePrefix(lower string) bool {
	for _, prefix := range interrogativePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func isLessonStep(lower string) bool {
	for _, prefix := range lessonStepPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, sub := range lessonStepSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	if len(lower) < shortPhraseLimit && !hasInterrogativePrefix(lower) {
		return true
	}
	return false
}

// NormalizeTitle case-folds, collapses whitespace, and drops a trailing
// question mark so retried submissions of the same question group together.
func NormalizeTitle(title string) string {
	folded := strings.ToLower(strings.TrimSpace(title))
	folded = strings.TrimSuffix(folded, "?")
	return strings.Join(strings.Fields(folded), " ")
}
