package cluster

import (
	"fmt"
	"sort"
	"sync"

	"blainsmith.com/go/seahash"
)

const numMapShards = 64

type mapShard struct {
	mu    sync.Mutex
	comps map[string][]Component
}

// Map is a sharded, thread-safe map from partition key to its components.
// Every key is written once.
type Map struct {
	shards [numMapShards]mapShard
}

// NewMap returns an empty Map.
func NewMap() *Map {
	m := &Map{}
	for i := range m.shards {
		m.shards[i].comps = make(map[string][]Component)
	}
	return m
}

func (m *Map) shard(key string) *mapShard {
	h := seahash.Sum64([]byte(key))
	return &m.shards[int(h%uint64(numMapShards))]
}

// Insert stores the components of key. It fails if key is already present.
func (m *Map) Insert(key string, comps []Component) error {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comps[key]; ok {
		return fmt.Errorf("key %q clustered twice", key)
	}
	s.comps[key] = comps
	return nil
}

// Get returns the components of key.
func (m *Map) Get(key string) ([]Component, bool) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	comps, ok := s.comps[key]
	return comps, ok
}

// Keys returns every key in sorted order.
func (m *Map) Keys() []string {
	var keys []string
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for k := range s.comps {
			keys = append(keys, k)
		}
		s.mu.Unlock()
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (m *Map) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		n += len(s.comps)
		s.mu.Unlock()
	}
	return n
}

// NumComponents returns the number of components across all keys.
func (m *Map) NumComponents() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for _, comps := range s.comps {
			n += len(comps)
		}
		s.mu.Unlock()
	}
	return n
}

// NumTranscripts returns the number of transcripts across all components.
func (m *Map) NumTranscripts() int {
	n := 0
	for _, k := range m.Keys() {
		comps, _ := m.Get(k)
		for _, c := range comps {
			n += len(c)
		}
	}
	return n
}

// ToMap copies the contents into a plain map.
func (m *Map) ToMap() map[string][]Component {
	out := make(map[string][]Component)
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for k, comps := range s.comps {
			out[k] = comps
		}
		s.mu.Unlock()
	}
	return out
}

// MapOf builds a Map from a plain map.
func MapOf(comps map[string][]Component) *Map {
	m := NewMap()
	for k, c := range comps {
		s := m.shard(k)
		s.comps[k] = c
	}
	return m
}
