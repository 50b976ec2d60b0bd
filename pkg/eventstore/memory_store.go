package eventstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/clawforge/kernel/pkg/kernelerrors"
)

// MemoryStore is an in-process Store, useful for tests and for callers that
// don't need cross-process durability. Append is serialized per-run with a
// single mutex, matching §5's "event append is strictly serialized per run."
type MemoryStore struct {
	mu       sync.Mutex
	runs     map[string]map[string]interface{}
	events   map[string][]*Event // runID -> seq-ordered events
	byEvtID  map[string]*Event
	clock    func() time.Time
}

// NewMemoryStore constructs an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]map[string]interface{}),
		events:  make(map[string][]*Event),
		byEvtID: make(map[string]*Event),
		clock:   time.Now,
	}
}

func (s *MemoryStore) CreateRun(runID string, metadata map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[runID]; exists {
		return fmt.Errorf("run %q already exists", runID)
	}
	s.runs[runID] = metadata
	s.events[runID] = nil
	return nil
}

func (s *MemoryStore) AppendEvent(runID string, draft EventDraft) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[runID]; !exists {
		return nil, kernelerrors.New(kernelerrors.CodeSessionNotFound, fmt.Sprintf("run %q not found", runID))
	}
	if _, dup := s.byEvtID[draft.EventID]; dup {
		return nil, kernelerrors.New(kernelerrors.CodeEventIDConflict, fmt.Sprintf("eventId %q already recorded", draft.EventID))
	}

	existing := s.events[runID]
	var prev *Event
	if len(existing) > 0 {
		prev = existing[len(existing)-1]
	}
	seq := int64(len(existing) + 1)

	e, err := buildEvent(runID, seq, draft, prev, nowISO(s.clock))
	if err != nil {
		return nil, err
	}

	s.events[runID] = append(s.events[runID], &e)
	s.byEvtID[draft.EventID] = &e
	return &e, nil
}

func (s *MemoryStore) ListEvents(runID string) ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events, ok := s.events[runID]
	if !ok {
		return nil, kernelerrors.New(kernelerrors.CodeSessionNotFound, fmt.Sprintf("run %q not found", runID))
	}
	out := make([]*Event, len(events))
	copy(out, events)
	return out, nil
}

func (s *MemoryStore) FindByEventID(eventID string) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byEvtID[eventID]
	if !ok {
		return nil, fmt.Errorf("event %q not found", eventID)
	}
	return e, nil
}

func (s *MemoryStore) FindByType(runID, eventType string) ([]*Event, error) {
	events, err := s.ListEvents(runID)
	if err != nil {
		return nil, err
	}
	var out []*Event
	for _, e := range events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) VerifyRunChain(runID string) (*ChainVerification, error) {
	events, err := s.ListEvents(runID)
	if err != nil {
		return nil, err
	}
	return verifyChain(events), nil
}
