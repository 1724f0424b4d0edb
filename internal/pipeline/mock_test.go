package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/birdsays/birdfact-cli/internal/llm"
	"github.com/birdsays/birdfact-cli/internal/model"
)

// fakeProvider scripts model responses per schema name, consumed in
// order. It records every request for prompt assertions.
type fakeProvider struct {
	mu        sync.Mutex
	requests  []llm.Request
	responses map[string][]string
	err       error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{responses: make(map[string][]string)}
}

func (f *fakeProvider) respond(schemaName string, bodies ...string) {
	f.responses[schemaName] = append(f.responses[schemaName], bodies...)
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) ModelID() string { return "fake-model" }

func (f *fakeProvider) Complete(_ context.Context, req llm.Request) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	queue := f.responses[req.SchemaName]
	if len(queue) == 0 {
		return nil, fmt.Errorf("fakeProvider: no scripted response for schema %q", req.SchemaName)
	}
	body := queue[0]
	f.responses[req.SchemaName] = queue[1:]
	return json.RawMessage(body), nil
}

func (f *fakeProvider) requestsFor(schemaName string) []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []llm.Request
	for _, req := range f.requests {
		if req.SchemaName == schemaName {
			out = append(out, req)
		}
	}
	return out
}

// fakeFetcher serves canned page text by URL. URLs in failURLs error.
type fakeFetcher struct {
	pages    map[string]string
	failURLs map[string]bool
	fetched  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]string), failURLs: make(map[string]bool)}
}

func (f *fakeFetcher) Text(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	if f.failURLs[url] {
		return "", fmt.Errorf("fetch %s: boom", url)
	}
	text, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("fetch %s: not found", url)
	}
	return text, nil
}

// memStore is an in-memory store.Store for orchestrator tests.
type memStore struct {
	mu    sync.Mutex
	facts map[string]model.FactRecord
}

func newMemStore() *memStore {
	return &memStore{facts: make(map[string]model.FactRecord)}
}

func (s *memStore) Migrate(context.Context) error { return nil }

func (s *memStore) Contains(_ context.Context, species string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.facts[species]
	return ok, nil
}

func (s *memStore) Get(_ context.Context, species string) (*model.FactRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.facts[species]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *memStore) Put(_ context.Context, species string, rec *model.FactRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[species] = *rec
	return nil
}

func (s *memStore) All(context.Context) (map[string]model.FactRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.FactRecord, len(s.facts))
	for k, v := range s.facts {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.facts), nil
}

func (s *memStore) Close() error { return nil }

// fakeRefdata serves fixed reference data.
type fakeRefdata struct {
	images map[string]string
	links  map[string]string
}

func (f *fakeRefdata) ImageURL(species string) (string, bool) {
	url, ok := f.images[species]
	return url, ok
}

func (f *fakeRefdata) SpeciesPage(species string) (string, bool) {
	url, ok := f.links[species]
	return url, ok
}

func (f *fakeRefdata) Species() []string { return nil }
