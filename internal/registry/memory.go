package registry

import (
	"context"
	"sync"
	"time"

	"github.com/ClareAI/astra-transfer-service/pkg/logger"
	"go.uber.org/zap"
)

// MemoryStore keeps active calls in a process-local map. State is lost on
// restart, which is acceptable for this service.
type MemoryStore struct {
	mu    sync.RWMutex
	calls map[string]CallRecord
}

// NewMemoryStore creates an empty in-memory call store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		calls: make(map[string]CallRecord),
	}
}

// Register inserts or overwrites the record for sessionID.
func (s *MemoryStore) Register(ctx context.Context, sessionID, carrierCallSID, callerNumber, joinURL string) error {
	record := CallRecord{
		SessionID:      sessionID,
		CarrierCallSID: carrierCallSID,
		CallerNumber:   callerNumber,
		StartTime:      time.Now(),
		JoinURL:        joinURL,
	}

	s.mu.Lock()
	s.calls[sessionID] = record
	s.mu.Unlock()

	logger.Base().Info("call registered",
		zap.String("session_id", sessionID),
		zap.String("provider_call_sid", carrierCallSID))
	return nil
}

// Get looks up the record for sessionID.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (CallRecord, error) {
	s.mu.RLock()
	record, ok := s.calls[sessionID]
	s.mu.RUnlock()

	if !ok {
		return CallRecord{}, ErrCallNotFound
	}
	return record, nil
}

// ListAll returns all registered calls in no particular order.
func (s *MemoryStore) ListAll(ctx context.Context) ([]CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]CallRecord, 0, len(s.calls))
	for _, record := range s.calls {
		records = append(records, record)
	}
	return records, nil
}
