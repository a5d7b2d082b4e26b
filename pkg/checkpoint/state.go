package checkpoint

import (
	"sort"
	"time"
)

// CrawlState is the durable snapshot of crawl progress. It is mutated only
// by the orchestrator goroutine; completed accounts and processed items only
// ever grow.
type CrawlState struct {
	completedAccounts []string
	completedSet      map[string]struct{}
	processedItems    map[string]struct{}

	currentAccount      string
	currentAccountIndex int

	videosEmitted int
	errorCount    int

	lastSaved            time.Time
	itemsSinceCheckpoint int
}

// snapshot is the persisted wire form of CrawlState.
type snapshot struct {
	CompletedAccounts   []string  `json:"completed_accounts"`
	ProcessedItems      []string  `json:"processed_items"`
	CurrentAccount      string    `json:"current_account,omitempty"`
	CurrentAccountIndex int       `json:"current_account_index"`
	VideosEmitted       int       `json:"videos_emitted"`
	ErrorCount          int       `json:"error_count"`
	LastSaved           time.Time `json:"last_saved"`
}

// NewState returns an empty state.
func NewState() *CrawlState {
	return &CrawlState{
		completedSet:   make(map[string]struct{}),
		processedItems: make(map[string]struct{}),
	}
}

func (s *CrawlState) toSnapshot() snapshot {
	items := make([]string, 0, len(s.processedItems))
	for id := range s.processedItems {
		items = append(items, id)
	}
	sort.Strings(items)

	return snapshot{
		CompletedAccounts:   append([]string(nil), s.completedAccounts...),
		ProcessedItems:      items,
		CurrentAccount:      s.currentAccount,
		CurrentAccountIndex: s.currentAccountIndex,
		VideosEmitted:       s.videosEmitted,
		ErrorCount:          s.errorCount,
		LastSaved:           time.Now().UTC(),
	}
}

func stateFromSnapshot(snap snapshot) *CrawlState {
	st := NewState()
	for _, name := range snap.CompletedAccounts {
		st.completedAccounts = append(st.completedAccounts, name)
		st.completedSet[name] = struct{}{}
	}
	for _, id := range snap.ProcessedItems {
		st.processedItems[id] = struct{}{}
	}
	st.currentAccount = snap.CurrentAccount
	st.currentAccountIndex = snap.CurrentAccountIndex
	st.videosEmitted = snap.VideosEmitted
	st.errorCount = snap.ErrorCount
	st.lastSaved = snap.LastSaved
	return st
}

// IsAccountCompleted reports whether the account has been fully finished,
// either successfully or with a terminal failure.
func (s *CrawlState) IsAccountCompleted(account string) bool {
	_, ok := s.completedSet[account]
	return ok
}

// MarkAccountCompleted adds the account to the completed set and clears the
// in-progress marker.
func (s *CrawlState) MarkAccountCompleted(account string) {
	if _, ok := s.completedSet[account]; !ok {
		s.completedAccounts = append(s.completedAccounts, account)
		s.completedSet[account] = struct{}{}
	}
	s.currentAccount = ""
}

// SetCurrentAccount records the account being processed and its position in
// the account list.
func (s *CrawlState) SetCurrentAccount(account string, index int) {
	s.currentAccount = account
	s.currentAccountIndex = index
}

// CurrentAccount returns the in-progress account, empty when none.
func (s *CrawlState) CurrentAccount() string { return s.currentAccount }

// CurrentAccountIndex returns the index the crawl resumes from.
func (s *CrawlState) CurrentAccountIndex() int { return s.currentAccountIndex }

// IsItemProcessed reports whether the item was already emitted or
// permanently failed in this run lineage.
func (s *CrawlState) IsItemProcessed(id string) bool {
	_, ok := s.processedItems[id]
	return ok
}

// MarkItemProcessed records an item as done so it is never re-extracted.
func (s *CrawlState) MarkItemProcessed(id string) {
	s.processedItems[id] = struct{}{}
}

// IncrementVideosEmitted bumps the emitted-record counter.
func (s *CrawlState) IncrementVideosEmitted() { s.videosEmitted++ }

// IncrementErrors bumps the error counter.
func (s *CrawlState) IncrementErrors() { s.errorCount++ }

// VideosEmitted returns the emitted-record counter.
func (s *CrawlState) VideosEmitted() int { return s.videosEmitted }

// ErrorCount returns the error counter.
func (s *CrawlState) ErrorCount() int { return s.errorCount }

// CompletedCount returns the number of completed accounts.
func (s *CrawlState) CompletedCount() int { return len(s.completedAccounts) }

// ProcessedCount returns the number of processed items.
func (s *CrawlState) ProcessedCount() int { return len(s.processedItems) }

// Resuming reports whether this state carries progress from a prior run.
func (s *CrawlState) Resuming() bool {
	return len(s.completedAccounts) > 0 || len(s.processedItems) > 0 || s.currentAccount != ""
}

// ResumeInfo summarizes the state for startup logging.
func (s *CrawlState) ResumeInfo() map[string]interface{} {
	return map[string]interface{}{
		"completed_accounts": len(s.completedAccounts),
		"processed_items":    len(s.processedItems),
		"current_account":    s.currentAccount,
		"current_index":      s.currentAccountIndex,
		"videos_emitted":     s.videosEmitted,
		"errors":             s.errorCount,
	}
}
