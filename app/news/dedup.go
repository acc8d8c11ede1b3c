package news

import "strings"

const DefaultSimilarityThreshold = 0.85

// Deduplicator rejects articles whose identity or content fingerprint has
// already been seen in a given date partition.
type Deduplicator struct {
	similarityThreshold float64
}

// NewDeduplicator returns a deduplicator using the given Jaccard similarity
// threshold; zero or negative falls back to DefaultSimilarityThreshold.
func NewDeduplicator(threshold float64) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Deduplicator{similarityThreshold: threshold}
}

// Deduplicate returns the subset of newArticles not present in existing,
// scanning in input order so the first occurrence of a duplicate pair wins.
// An empty content hash never matches anything.
func (d *Deduplicator) Deduplicate(newArticles, existing []Article) []Article {
	if len(newArticles) == 0 {
		return nil
	}

	existingIDs := make(map[string]struct{}, len(existing))
	existingHashes := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		existingIDs[a.ID] = struct{}{}
		if a.ContentHash != "" {
			existingHashes[a.ContentHash] = struct{}{}
		}
	}

	unique := make([]Article, 0, len(newArticles))
	seenIDs := make(map[string]struct{})
	seenHashes := make(map[string]struct{})

	for _, a := range newArticles {
		if _, ok := existingIDs[a.ID]; ok {
			continue
		}
		if _, ok := seenIDs[a.ID]; ok {
			continue
		}
		if a.ContentHash != "" {
			if _, ok := existingHashes[a.ContentHash]; ok {
				continue
			}
			if _, ok := seenHashes[a.ContentHash]; ok {
				continue
			}
		}

		unique = append(unique, a)
		seenIDs[a.ID] = struct{}{}
		if a.ContentHash != "" {
			seenHashes[a.ContentHash] = struct{}{}
		}
	}

	return unique
}

// FindSimilar returns candidates whose word-set Jaccard similarity with the
// article is at or above the threshold. Advisory only; empty content on either
// side yields no match.
func (d *Deduplicator) FindSimilar(article Article, candidates []Article) []Article {
	if article.Content == "" {
		return nil
	}

	articleWords := wordSet(article.Content)

	var similar []Article
	for _, candidate := range candidates {
		if candidate.Content == "" || candidate.ID == article.ID {
			continue
		}

		candidateWords := wordSet(candidate.Content)

		intersection := 0
		for w := range articleWords {
			if _, ok := candidateWords[w]; ok {
				intersection++
			}
		}
		union := len(articleWords) + len(candidateWords) - intersection

		if union > 0 && float64(intersection)/float64(union) >= d.similarityThreshold {
			similar = append(similar, candidate)
		}
	}

	return similar
}

func wordSet(content string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(content))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
