package mocks

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-memory cache.Store for testing. All operations share one
// mutex, so CheckAndDecr is atomic the same way the Lua script is in Redis.
//
// ErrOn injects a failure for a named operation ("HSet", "LPush", ...).
type Memory struct {
	mu      sync.Mutex
	strings map[string]string
	hashes  map[string]map[string]string
	lists   map[string][]string
	sets    map[string]map[string]struct{}
	zsets   map[string]map[string]float64

	ErrOn map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		lists:   make(map[string][]string),
		sets:    make(map[string]map[string]struct{}),
		zsets:   make(map[string]map[string]float64),
		ErrOn:   make(map[string]error),
	}
}

// FailOn makes the named operation return err on every subsequent call.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrOn[op] = err
}

func (m *Memory) enter(op string) error {
	return m.ErrOn[op]
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Get"); err != nil {
		return "", false, err
	}
	val, ok := m.strings[key]
	return val, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Set"); err != nil {
		return err
	}
	m.strings[key] = value
	return nil
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Del"); err != nil {
		return err
	}
	for _, key := range keys {
		delete(m.strings, key)
		delete(m.hashes, key)
		delete(m.lists, key)
		delete(m.sets, key)
		delete(m.zsets, key)
	}
	return nil
}

func (m *Memory) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enter("Expire")
}

func (m *Memory) Incr(ctx context.Context, key string) (int64, error) {
	return m.incrBy("Incr", key, 1)
}

func (m *Memory) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	return m.incrBy("IncrBy", key, n)
}

func (m *Memory) Decr(ctx context.Context, key string) (int64, error) {
	return m.incrBy("Decr", key, -1)
}

func (m *Memory) incrBy(op, key string, n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(op); err != nil {
		return 0, err
	}
	cur, _ := strconv.ParseInt(m.strings[key], 10, 64)
	cur += n
	m.strings[key] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (m *Memory) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("IncrByFloat"); err != nil {
		return 0, err
	}
	cur, _ := strconv.ParseFloat(m.strings[key], 64)
	cur += delta
	m.strings[key] = strconv.FormatFloat(cur, 'f', -1, 64)
	return cur, nil
}

func (m *Memory) CheckAndDecr(ctx context.Context, key string, n int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CheckAndDecr"); err != nil {
		return false, err
	}
	raw, ok := m.strings[key]
	if !ok {
		return false, nil
	}
	cur, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || cur < n {
		return false, nil
	}
	m.strings[key] = strconv.FormatInt(cur-n, 10)
	return true, nil
}

func (m *Memory) HGet(ctx context.Context, key, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("HGet"); err != nil {
		return "", false, err
	}
	val, ok := m.hashes[key][field]
	return val, ok, nil
}

func (m *Memory) HSet(ctx context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("HSet"); err != nil {
		return err
	}
	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string]string)
	}
	m.hashes[key][field] = value
	return nil
}

func (m *Memory) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("HGetAll"); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m.hashes[key]))
	for f, v := range m.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (m *Memory) HDel(ctx context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("HDel"); err != nil {
		return err
	}
	for _, f := range fields {
		delete(m.hashes[key], f)
	}
	return nil
}

func (m *Memory) HIncrBy(ctx context.Context, key, field string, n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("HIncrBy"); err != nil {
		return 0, err
	}
	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string]string)
	}
	cur, _ := strconv.ParseInt(m.hashes[key][field], 10, 64)
	cur += n
	m.hashes[key][field] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (m *Memory) HIncrByFloat(ctx context.Context, key, field string, delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("HIncrByFloat"); err != nil {
		return 0, err
	}
	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string]string)
	}
	cur, _ := strconv.ParseFloat(m.hashes[key][field], 64)
	cur += delta
	m.hashes[key][field] = strconv.FormatFloat(cur, 'f', -1, 64)
	return cur, nil
}

func (m *Memory) LPush(ctx context.Context, key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("LPush"); err != nil {
		return err
	}
	m.lists[key] = append(append([]string{}, reverse(values)...), m.lists[key]...)
	return nil
}

func (m *Memory) RPop(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RPop"); err != nil {
		return "", false, err
	}
	list := m.lists[key]
	if len(list) == 0 {
		return "", false, nil
	}
	val := list[len(list)-1]
	m.lists[key] = list[:len(list)-1]
	return val, true, nil
}

// ListLen reports the current length of a list key.
func (m *Memory) ListLen(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lists[key])
}

func (m *Memory) SAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SAdd"); err != nil {
		return err
	}
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]struct{})
	}
	for _, member := range members {
		m.sets[key][member] = struct{}{}
	}
	return nil
}

func (m *Memory) SIsMember(ctx context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SIsMember"); err != nil {
		return false, err
	}
	_, ok := m.sets[key][member]
	return ok, nil
}

func (m *Memory) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ZIncrBy"); err != nil {
		return 0, err
	}
	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] += delta
	return m.zsets[key][member], nil
}

func (m *Memory) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ZRevRange"); err != nil {
		return nil, err
	}
	type entry struct {
		member string
		score  float64
	}
	entries := make([]entry, 0, len(m.zsets[key]))
	for member, score := range m.zsets[key] {
		entries = append(entries, entry{member, score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].member > entries[j].member
	})
	if stop < 0 || stop >= int64(len(entries)) {
		stop = int64(len(entries)) - 1
	}
	if start > stop {
		return nil, nil
	}
	members := make([]string, 0, stop-start+1)
	for _, e := range entries[start : stop+1] {
		members = append(members, e.member)
	}
	return members, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func reverse(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[len(values)-1-i] = v
	}
	return out
}
