package crawler

// crawlState is the frontier, visited set and results of one crawl. It is
// owned by a single Engine and only mutated from its loop.
type crawlState struct {
	frontier []string
	queued   map[string]struct{}
	visited  map[string]struct{}
	failed   map[string]struct{} // only tracked with skipFailed
	pages    []PageRecord

	attempts int
	failures int
}

func newCrawlState(startURL string) *crawlState {
	s := &crawlState{
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
		failed:  make(map[string]struct{}),
	}
	s.enqueue(startURL)
	return s
}

// enqueue appends url unless it is already visited, queued or known failed.
func (s *crawlState) enqueue(url string) bool {
	if _, ok := s.visited[url]; ok {
		return false
	}
	if _, ok := s.queued[url]; ok {
		return false
	}
	if _, ok := s.failed[url]; ok {
		return false
	}
	s.frontier = append(s.frontier, url)
	s.queued[url] = struct{}{}
	return true
}

func (s *crawlState) dequeue() string {
	url := s.frontier[0]
	s.frontier[0] = ""
	s.frontier = s.frontier[1:]
	delete(s.queued, url)
	return url
}

// requeueFront puts a dequeued but unattempted url back at the head.
func (s *crawlState) requeueFront(url string) {
	s.frontier = append([]string{url}, s.frontier...)
	s.queued[url] = struct{}{}
}

func (s *crawlState) pending() int {
	return len(s.frontier)
}

func (s *crawlState) isVisited(url string) bool {
	_, ok := s.visited[url]
	return ok
}

func (s *crawlState) markVisited(url string) {
	s.visited[url] = struct{}{}
}

func (s *crawlState) markFailed(url string) {
	s.failed[url] = struct{}{}
}

func (s *crawlState) visitedCount() int {
	return len(s.visited)
}
