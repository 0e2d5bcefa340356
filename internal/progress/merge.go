package progress

// mergeTopics resolves two records that share a normalized title. The newer
// record supplies the surviving identity; completeness is max-merged so a
// merge can never regress what the user has finished. The earlier creation
// timestamp is kept only when the earlier record carries at least as much
// completion as the later one.
func mergeTopics(a, b Topic) Topic {
	newer, older := a, b
	if b.CreatedAt.After(a.CreatedAt) {
		newer, older = b, a
	}

	merged := newer
	if len(older.CompletedLessons) > len(merged.CompletedLessons) {
		merged.CompletedLessons = append([]int(nil), older.CompletedLessons...)
	}
	if older.TotalLessons > merged.TotalLessons {
		merged.TotalLessons = older.TotalLessons
	}
	if older.LastAccessedAt.After(merged.LastAccessedAt) {
		merged.LastAccessedAt = older.LastAccessedAt
	}
	if merged.Category == "" {
		merged.Category = older.Category
	}
	if len(older.CompletedLessons) >= len(newer.CompletedLessons) {
		merged.CreatedAt = older.CreatedAt
	}
	return merged
}

// dedupeTopics groups user-query records by normalized title and folds each
// group into one canonical topic. losers collects the superseded record ids
// so a cleanup pass can remove their storage entries. Running the pass over
// an already-canonical set is a no-op.
func dedupeTopics(topics []Topic) (canonical []Topic, losers []Topic) {
	byTitle := make(map[string]Topic)
	var order []string
	for _, topic := range topics {
		key := NormalizeTitle(topic.Title)
		existing, ok := byTitle[key]
		if !ok {
			byTitle[key] = topic
			order = append(order, key)
			continue
		}
		merged := mergeTopics(existing, topic)
		if existing.ID != merged.ID {
			losers = append(losers, existing)
		} else {
			losers = append(losers, topic)
		}
		byTitle[key] = merged
	}
	for _, key := range order {
		canonical = append(canonical, byTitle[key])
	}
	return canonical, losers
}
