package storesync

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/internal/apperr"
	"github.com/liamcoop/courtextract/patterns"
)

// Case is one display-store case.
type Case struct {
	ID        string
	CourtName string
	FiledAt   extraction.Date
	Documents Documents
}

// MemoryDisplayStore is an in-process DisplayStore and Catalog. Documents
// are stored as JSON so reads return independent copies.
type MemoryDisplayStore struct {
	mu    sync.Mutex
	cases map[string]memoryCase
	err   error
}

type memoryCase struct {
	courtName string
	filedAt   extraction.Date
	documents []byte
}

func NewMemoryDisplayStore() *MemoryDisplayStore {
	return &MemoryDisplayStore{cases: make(map[string]memoryCase)}
}

// PutCase adds or replaces a case.
func (s *MemoryDisplayStore) PutCase(c Case) error {
	data, err := json.Marshal(c.Documents)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.ID] = memoryCase{courtName: c.CourtName, filedAt: c.FiledAt, documents: data}
	return nil
}

// FailWith makes every later call return err; nil restores normal operation.
func (s *MemoryDisplayStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Documents returns a copy of a case's documents.
func (s *MemoryDisplayStore) Documents(caseID string) (Documents, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, false
	}
	docs, err := ParseDocuments(c.documents)
	if err != nil {
		return nil, false
	}
	return docs, true
}

func (s *MemoryDisplayStore) ApplyToDocument(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	ids := make([]string, 0, len(s.cases))
	if rec.CaseID != "" {
		ids = append(ids, rec.CaseID)
	} else {
		for id := range s.cases {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	for _, id := range ids {
		c, ok := s.cases[id]
		if !ok {
			continue
		}
		docs, err := ParseDocuments(c.documents)
		if err != nil {
			return err
		}
		if !docs.Merge(rec) {
			continue
		}
		data, err := json.Marshal(docs)
		if err != nil {
			return err
		}
		c.documents = data
		s.cases[id] = c
		return nil
	}
	return &apperr.DocumentNotFoundError{Store: DisplayStoreName, CaseID: rec.CaseID, DocumentPath: rec.DocumentPath}
}

func (s *MemoryDisplayStore) FindDocuments(_ context.Context, q CatalogQuery) ([]CatalogDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	var out []CatalogDocument
	for id, c := range s.cases {
		docs, err := ParseDocuments(c.documents)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			cd := CatalogDocument{CaseID: id, DocumentPath: d.Path, Description: d.Description}
			filed := c.filedAt
			if raw := d.String("filed_date"); raw != "" {
				if fd, err := extraction.ParseISODate(raw); err == nil {
					filed = fd
				}
			}
			if !filed.IsZero() {
				cd.FiledDate = &filed
			}
			if q.matches(patterns.NormalizeJurisdiction(c.courtName), cd) {
				out = append(out, cd)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].FiledDate.Compare(*out[j].FiledDate); c != 0 {
			return c < 0
		}
		if out[i].CaseID != out[j].CaseID {
			return out[i].CaseID < out[j].CaseID
		}
		return out[i].DocumentPath < out[j].DocumentPath
	})
	return out, nil
}

// MemoryBatchStore is an in-process BatchStore.
type MemoryBatchStore struct {
	mu      sync.Mutex
	records map[[2]string]Record
	err     error
}

func NewMemoryBatchStore() *MemoryBatchStore {
	return &MemoryBatchStore{records: make(map[[2]string]Record)}
}

// FailWith makes every later call return err; nil restores normal operation.
func (s *MemoryBatchStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryBatchStore) Upsert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	rec.Emails = append([]string(nil), rec.Emails...)
	s.records[[2]string{rec.JobID, rec.DocumentPath}] = rec
	return nil
}

// Get returns the stored row for a job and document.
func (s *MemoryBatchStore) Get(jobID, documentPath string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[[2]string{jobID, documentPath}]
	return rec, ok
}

// Len returns the number of stored rows.
func (s *MemoryBatchStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
