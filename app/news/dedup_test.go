package news

import (
	"testing"
)

func article(url, content string) Article {
	return NewArticle("Title for "+url, url, "test-source", nil, content, nil)
}

func TestDeduplicate_EmptyInput(t *testing.T) {
	d := NewDeduplicator(0)

	result := d.Deduplicate(nil, []Article{article("https://example.com/a", "some content")})
	if len(result) != 0 {
		t.Errorf("Expected no articles, got %d", len(result))
	}
}

func TestDeduplicate_AgainstExisting(t *testing.T) {
	d := NewDeduplicator(0)

	existing := []Article{
		article("https://example.com/a", "first article body"),
		article("https://example.com/b", "second article body"),
	}
	incoming := []Article{
		article("https://example.com/a", "first article body changed"), // same URL
		article("https://example.com/c", "second article body"),        // same content
		article("https://example.com/d", "genuinely new body"),
	}

	result := d.Deduplicate(incoming, existing)

	if len(result) != 1 {
		t.Fatalf("Expected 1 unique article, got %d", len(result))
	}
	if result[0].URL != "https://example.com/d" {
		t.Errorf("Expected the new article to survive, got %s", result[0].URL)
	}

	// Nothing in the result may share a fingerprint with the existing set
	for _, a := range result {
		for _, e := range existing {
			if a.ID == e.ID {
				t.Errorf("Result contains existing identity fingerprint %s", a.ID)
			}
			if a.ContentHash != "" && a.ContentHash == e.ContentHash {
				t.Errorf("Result contains existing content fingerprint %s", a.ContentHash)
			}
		}
	}
}

func TestDeduplicate_InternalDuplicates_FirstWins(t *testing.T) {
	d := NewDeduplicator(0)

	incoming := []Article{
		article("https://example.com/a", "alpha body"),
		article("https://example.com/a", "different body, same url"),
		article("https://example.com/b", "alpha body"), // duplicate content of first
		article("https://example.com/c", "gamma body"),
	}

	result := d.Deduplicate(incoming, nil)

	if len(result) != 2 {
		t.Fatalf("Expected 2 unique articles, got %d", len(result))
	}
	if result[0].URL != "https://example.com/a" || result[1].URL != "https://example.com/c" {
		t.Errorf("First-occurrence order not preserved: %s, %s", result[0].URL, result[1].URL)
	}
}

func TestDeduplicate_EmptyContentHashNeverMatches(t *testing.T) {
	d := NewDeduplicator(0)

	incoming := []Article{
		article("https://example.com/a", ""),
		article("https://example.com/b", ""),
	}

	result := d.Deduplicate(incoming, []Article{article("https://example.com/c", "")})

	if len(result) != 2 {
		t.Errorf("Articles with empty content must not be content-deduplicated, got %d", len(result))
	}
}

func TestFindSimilar_EmptyContent(t *testing.T) {
	d := NewDeduplicator(0)

	result := d.FindSimilar(article("https://example.com/a", ""), []Article{
		article("https://example.com/b", "some words here"),
	})
	if len(result) != 0 {
		t.Errorf("Expected no matches for empty content, got %d", len(result))
	}
}

func TestFindSimilar_JaccardThreshold(t *testing.T) {
	d := NewDeduplicator(0)

	base := article("https://example.com/a", "openai releases new model with improved reasoning capabilities today")
	near := article("https://example.com/b", "openai releases new model with improved reasoning capabilities")
	far := article("https://example.com/c", "completely unrelated story about weather patterns in europe")

	result := d.FindSimilar(base, []Article{near, far, base})

	if len(result) != 1 {
		t.Fatalf("Expected 1 similar article, got %d", len(result))
	}
	if result[0].URL != near.URL {
		t.Errorf("Expected %s to be similar, got %s", near.URL, result[0].URL)
	}
}

func TestFindSimilar_CustomThreshold(t *testing.T) {
	base := article("https://example.com/a", "openai releases new model today")
	half := article("https://example.com/b", "openai releases old benchmark today")

	// Jaccard of the pair is 3/7, below the default but above 0.3.
	if got := NewDeduplicator(0).FindSimilar(base, []Article{half}); len(got) != 0 {
		t.Errorf("Default threshold matched a weakly similar pair, got %d", len(got))
	}
	if got := NewDeduplicator(0.3).FindSimilar(base, []Article{half}); len(got) != 1 {
		t.Errorf("Lowered threshold should match the pair, got %d", len(got))
	}
}

func TestNewDeduplicatorDefaultsThreshold(t *testing.T) {
	if d := NewDeduplicator(0); d.similarityThreshold != DefaultSimilarityThreshold {
		t.Errorf("threshold = %v, want default", d.similarityThreshold)
	}
	if d := NewDeduplicator(-1); d.similarityThreshold != DefaultSimilarityThreshold {
		t.Errorf("negative threshold = %v, want default", d.similarityThreshold)
	}
	if d := NewDeduplicator(0.5); d.similarityThreshold != 0.5 {
		t.Errorf("threshold = %v, want 0.5", d.similarityThreshold)
	}
}
