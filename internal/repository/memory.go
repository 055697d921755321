package repository

import (
	"context"
	"sync"
	"time"

	"medbook/internal/models"
)

type draftEntry struct {
	draft     models.BookingDraft
	expiresAt time.Time
}

type MemorySessionRepository struct {
	drafts     sync.Map
	rateLimits sync.Map
	ttl        time.Duration

	mu          sync.Mutex
	history     map[string][]models.ChatMessage
	historySize int

	now func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration, historySize int) *MemorySessionRepository {
	if historySize <= 0 {
		historySize = models.DefaultHistorySize
	}
	return &MemorySessionRepository{
		ttl:         ttl,
		history:     make(map[string][]models.ChatMessage),
		historySize: historySize,
		now:         time.Now,
	}
}

func cloneDraft(d *models.BookingDraft) models.BookingDraft {
	c := *d
	if d.SuggestedSlots != nil {
		c.SuggestedSlots = append([]string(nil), d.SuggestedSlots...)
	}
	return c
}

func (r *MemorySessionRepository) GetDraft(_ context.Context, sessionID string) (*models.BookingDraft, error) {
	val, ok := r.drafts.Load(sessionID)
	if !ok {
		return nil, nil
	}
	entry := val.(*draftEntry)
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		r.drafts.Delete(sessionID)
		return nil, nil
	}
	d := cloneDraft(&entry.draft)
	return &d, nil
}

func (r *MemorySessionRepository) SaveDraft(_ context.Context, draft *models.BookingDraft) error {
	entry := &draftEntry{draft: cloneDraft(draft)}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.drafts.Store(draft.SessionID, entry)
	return nil
}

func (r *MemorySessionRepository) DeleteDraft(_ context.Context, sessionID string) error {
	r.drafts.Delete(sessionID)
	return nil
}

func (r *MemorySessionRepository) AppendMessages(_ context.Context, sessionID string, msgs ...models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := append(r.history[sessionID], msgs...)
	if len(h) > r.historySize {
		h = append([]models.ChatMessage(nil), h[len(h)-r.historySize:]...)
	}
	r.history[sessionID] = h
	return nil
}

func (r *MemorySessionRepository) GetHistory(_ context.Context, sessionID string) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ChatMessage(nil), r.history[sessionID]...), nil
}

func (r *MemorySessionRepository) ClearHistory(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.history, sessionID)
	return nil
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemorySessionRepository) CheckRateLimit(_ context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, _ := r.rateLimits.LoadOrStore(sessionID, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.count == 0 || now.After(entry.expiresAt) {
		entry.count = 1
		entry.expiresAt = now.Add(window)
	} else {
		entry.count++
	}
	return entry.count <= limit, nil
}
