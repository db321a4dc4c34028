package transcript

import (
	"strings"
)

// Searcher provides content search over saved transcripts.
type Searcher struct {
	store *FileStore
}

// NewSearcher creates a searcher over the store's transcripts.
func NewSearcher(store *FileStore) *Searcher {
	return &Searcher{store: store}
}

// SearchOptions configures content search.
type SearchOptions struct {
	CaseSensitive bool
	FlowID        string // restrict to one flow
	NodeID        string // restrict to one node's calls
	MaxResults    int
}

// SearchResult represents a search match.
type SearchResult struct {
	RunID  string `json:"runId"`
	CallID int    `json:"callId"`
	Node   string `json:"node"`
	Field  string `json:"field"` // "prompt" or "response"
	Line   string `json:"line"`
}

// Search scans prompts and responses of all matching runs for the query.
func (s *Searcher) Search(query string, opts SearchOptions) ([]SearchResult, error) {
	metas, err := s.store.List(ListFilter{FlowID: opts.FlowID})
	if err != nil {
		return nil, err
	}

	match := func(line string) bool {
		if opts.CaseSensitive {
			return strings.Contains(line, query)
		}
		return strings.Contains(strings.ToLower(line), strings.ToLower(query))
	}

	var results []SearchResult
	for _, meta := range metas {
		t, err := s.store.Load(meta.RunID)
		if err != nil {
			continue
		}

		for _, call := range t.Calls {
			if opts.NodeID != "" && call.Node != opts.NodeID {
				continue
			}
			for field, text := range map[string]string{
				"prompt":   call.Prompt,
				"response": call.Response,
			} {
				for _, line := range strings.Split(text, "\n") {
					if !match(line) {
						continue
					}
					results = append(results, SearchResult{
						RunID:  t.RunID,
						CallID: call.ID,
						Node:   call.Node,
						Field:  field,
						Line:   strings.TrimSpace(line),
					})
					if opts.MaxResults > 0 && len(results) >= opts.MaxResults {
						return results, nil
					}
				}
			}
		}
	}

	return results, nil
}
