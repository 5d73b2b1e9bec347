package subscription

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store は1セッション分の購読ストア。
// キーは常に値の Endpoint と一致する。
type Store interface {
	// Add は購読を Endpoint をキーとして登録する。同じ Endpoint は上書きされる。
	Add(ctx context.Context, sub Subscription) error
	// Remove は Endpoint に対応する購読を削除する。存在しない場合は何もしない。
	Remove(ctx context.Context, endpoint string) error
	// Get は Endpoint に対応する購読を返す。
	Get(ctx context.Context, endpoint string) (Subscription, bool, error)
	// List は全購読を Endpoint の昇順で返す。
	List(ctx context.Context) ([]Subscription, error)
	// Len は登録済みの購読数を返す。
	Len(ctx context.Context) (int, error)
}

// Backend はセッションごとの Store を払い出し、セッションの寿命を管理する。
type Backend interface {
	// Store はセッションIDに対応する Store を返す。
	Store(sessionID string) Store
	// Touch はセッションの最終アクセス時刻を記録する。
	Touch(ctx context.Context, sessionID string, at time.Time) error
	// Expire は before より前から利用されていないセッションを破棄し、そのIDを返す。
	Expire(ctx context.Context, before time.Time) ([]string, error)
	// Drop はセッションとその購読をすべて破棄する。
	Drop(ctx context.Context, sessionID string) error
	// Close はバックエンドが保持するリソースを解放する。
	Close() error
}

// memorySession はメモリバックエンドが保持するセッション。
type memorySession struct {
	store    *memoryStore
	lastSeen time.Time
}

// MemoryBackend はプロセス内メモリに購読を保持するバックエンド。
type MemoryBackend struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend は空のメモリバックエンドを生成する。
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*memorySession)}
}

// Store はセッションの Store を返す。未知のセッションであれば作成する。
func (b *MemoryBackend) Store(sessionID string) Store {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session(sessionID, time.Now()).store
}

// session はロック取得済みの状態でセッションを取得または作成する。
func (b *MemoryBackend) session(sessionID string, at time.Time) *memorySession {
	s, ok := b.sessions[sessionID]
	if !ok {
		s = &memorySession{
			store:    &memoryStore{entries: make(map[string]Subscription)},
			lastSeen: at,
		}
		b.sessions[sessionID] = s
	}
	return s
}

// Touch はセッションの最終アクセス時刻を更新する。
func (b *MemoryBackend) Touch(_ context.Context, sessionID string, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session(sessionID, at).lastSeen = at
	return nil
}

// Expire は before より前から利用されていないセッションを破棄する。
func (b *MemoryBackend) Expire(_ context.Context, before time.Time) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var expired []string
	for id, s := range b.sessions {
		if s.lastSeen.Before(before) {
			delete(b.sessions, id)
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired, nil
}

// Drop はセッションを破棄する。存在しない場合は何もしない。
func (b *MemoryBackend) Drop(_ context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
	return nil
}

// Sessions は保持しているセッション数を返す。
func (b *MemoryBackend) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// Close は何もしない。
func (b *MemoryBackend) Close() error {
	return nil
}

// memoryStore はmapによる Store 実装。
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]Subscription
}

func (s *memoryStore) Add(_ context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sub.Endpoint] = clone(sub)
	return nil
}

func (s *memoryStore) Remove(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, endpoint)
	return nil
}

func (s *memoryStore) Get(_ context.Context, endpoint string) (Subscription, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.entries[endpoint]
	if !ok {
		return Subscription{}, false, nil
	}
	return clone(sub), true, nil
}

func (s *memoryStore) List(_ context.Context) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := make([]Subscription, 0, len(s.entries))
	for _, sub := range s.entries {
		subs = append(subs, clone(sub))
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].Endpoint < subs[j].Endpoint
	})
	return subs, nil
}

func (s *memoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// clone は呼び出し側との間でポインタを共有しないようにコピーを返す。
func clone(sub Subscription) Subscription {
	if sub.ExpirationTime != nil {
		exp := *sub.ExpirationTime
		sub.ExpirationTime = &exp
	}
	return sub
}
