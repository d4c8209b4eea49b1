package router

import "sync"

// Set 按模型名缓存 Router
//
// 同一名称只构造一次 Router；构造失败不缓存。
type Set struct {
	opts []Option

	mu      sync.RWMutex
	routers map[string]*Router
}

// NewSet 创建 Router 集合，opts 用于集合内每个 Router
func NewSet(opts ...Option) *Set {
	return &Set{
		opts:    opts,
		routers: make(map[string]*Router),
	}
}

// Router 返回 name 对应的 Router，不存在时构造
func (s *Set) Router(name string) (*Router, error) {
	s.mu.RLock()
	r, ok := s.routers[name]
	s.mu.RUnlock()
	if ok {
		return r, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.routers[name]; ok {
		return r, nil
	}
	r, err := New(name, s.opts...)
	if err != nil {
		return nil, err
	}
	s.routers[name] = r
	return r, nil
}

// Len 已缓存的 Router 数量
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.routers)
}
