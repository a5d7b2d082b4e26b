package integration

import (
	"context"
	"fmt"
	"time"

	"igcrawler/pkg/source"
)

// scriptedSource is an in-memory source.Source with per-account item lists
// and optional scripted failures.
type scriptedSource struct {
	accounts  map[string][]*source.Item
	failures  map[string]error
	loadCalls map[string]int
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{
		accounts:  make(map[string][]*source.Item),
		failures:  make(map[string]error),
		loadCalls: make(map[string]int),
	}
}

func (s *scriptedSource) addAccount(username string, items ...*source.Item) {
	s.accounts[username] = items
}

func (s *scriptedSource) LoadAccount(_ context.Context, username string) (source.Account, error) {
	s.loadCalls[username]++
	if err, ok := s.failures[username]; ok {
		return nil, err
	}
	items, ok := s.accounts[username]
	if !ok {
		return nil, fmt.Errorf("404: profile %q not found", username)
	}
	return &scriptedAccount{username: username, items: items}, nil
}

type scriptedAccount struct {
	username string
	items    []*source.Item
}

func (a *scriptedAccount) Username() string { return a.username }
func (a *scriptedAccount) MediaCount() int  { return len(a.items) }

func (a *scriptedAccount) Items(category source.Category) source.Iterator {
	if category != source.CategoryPosts {
		return &sliceIterator{}
	}
	return &sliceIterator{items: a.items}
}

type sliceIterator struct {
	items []*source.Item
	pos   int
}

func (it *sliceIterator) Next(_ context.Context) (*source.Item, error) {
	if it.pos >= len(it.items) {
		return nil, nil
	}
	item := it.items[it.pos]
	it.pos++
	return item, nil
}

// video builds a video item with sensible defaults.
func video(owner, shortcode string, likes int) *source.Item {
	return &source.Item{
		ID:             shortcode,
		Owner:          owner,
		IsVideo:        true,
		Caption:        "clip #" + shortcode,
		TakenAt:        time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC),
		Likes:          likes,
		Comments:       3,
		VideoURL:       "https://cdn.example/" + shortcode + ".mp4",
		VideoViews:     likes * 10,
		VideoDuration:  8.0,
		OwnerFollowers: 5000,
	}
}
