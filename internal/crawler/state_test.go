package crawler

import (
	"reflect"
	"testing"
)

func TestCrawlStateEnqueue(t *testing.T) {
	s := newCrawlState("https://example.com/")

	if s.enqueue("https://example.com/") {
		t.Error("Start URL is already queued")
	}
	if !s.enqueue("https://example.com/a") {
		t.Error("Expected new URL to be queued")
	}
	if s.enqueue("https://example.com/a") {
		t.Error("Queued URL must not be queued twice")
	}

	url := s.dequeue()
	s.markVisited(url)
	if s.enqueue(url) {
		t.Error("Visited URL must not be queued again")
	}

	s.markFailed("https://example.com/broken")
	if s.enqueue("https://example.com/broken") {
		t.Error("Known failed URL must not be queued")
	}

	if s.pending() != 1 || s.visitedCount() != 1 {
		t.Errorf("Expected 1 pending and 1 visited, got %d/%d", s.pending(), s.visitedCount())
	}
}

func TestCrawlStateFIFO(t *testing.T) {
	s := newCrawlState("https://example.com/")
	s.enqueue("https://example.com/a")
	s.enqueue("https://example.com/b")

	var order []string
	for s.pending() > 0 {
		order = append(order, s.dequeue())
	}

	expected := []string{"https://example.com/", "https://example.com/a", "https://example.com/b"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("Dequeue order = %v, want %v", order, expected)
	}

	// A dequeued URL may be discovered again until it is visited.
	if !s.enqueue("https://example.com/a") {
		t.Error("Dequeued but unvisited URL should be queueable")
	}
}

func TestCrawlStateRequeueFront(t *testing.T) {
	s := newCrawlState("https://example.com/")
	s.enqueue("https://example.com/a")

	url := s.dequeue()
	s.requeueFront(url)

	if got := s.dequeue(); got != url {
		t.Errorf("Expected %s at the head, got %s", url, got)
	}
	if s.enqueue("https://example.com/a") {
		t.Error("Requeue must keep other entries queued")
	}
}
