// Package registry 维护模型目录与别名解析
//
// 目录是进程级、读多写少的状态：读操作无锁地读取当前快照，
// 写操作（如加入本地发现的模型）在互斥锁内复制快照、修改后原子替换，
// 因此可以与进行中的解析并发执行。
package registry

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 快照
// ═══════════════════════════════════════════════════════════════════════════

// snapshot 不可变的目录快照
type snapshot struct {
	models        map[llm.ProviderKind][]string
	index         map[string]llm.ProviderKind
	aliases       map[string]string
	budgets       map[string]int
	defaultBudget int
}

// build 从目录构建快照并校验
//
// 校验规则：
//   - Provider 必须是已知的 ProviderKind
//   - 同一模型名不能出现在两个 Provider 下
//   - 别名必须指向目录中存在的模型
func build(cat *Catalog) (*snapshot, error) {
	if cat == nil {
		return nil, llm.NewConfigError("catalog is required", nil)
	}

	s := &snapshot{
		models:        make(map[llm.ProviderKind][]string, len(cat.Providers)),
		index:         make(map[string]llm.ProviderKind),
		aliases:       make(map[string]string, len(cat.Aliases)),
		budgets:       make(map[string]int, len(cat.TokenBudgets)),
		defaultBudget: cat.DefaultTokenBudget,
	}
	if s.defaultBudget <= 0 {
		s.defaultBudget = DefaultTokenBudget
	}

	for kind, names := range cat.Providers {
		if !kind.Valid() {
			return nil, llm.NewConfigError(fmt.Sprintf("unknown provider kind %q in catalog", kind), nil)
		}
		list := make([]string, 0, len(names))
		for _, name := range names {
			if name == "" {
				continue
			}
			if owner, dup := s.index[name]; dup {
				if owner == kind {
					continue
				}
				return nil, llm.NewConfigError(
					fmt.Sprintf("model %q listed under both %s and %s", name, owner, kind), nil)
			}
			s.index[name] = kind
			list = append(list, name)
		}
		s.models[kind] = list
	}

	for alias, target := range cat.Aliases {
		if _, ok := s.index[target]; !ok {
			return nil, llm.NewConfigError(
				fmt.Sprintf("alias %q points to %q which is not in the catalog", alias, target), nil)
		}
		s.aliases[alias] = target
	}

	for model, budget := range cat.TokenBudgets {
		if budget > 0 {
			s.budgets[model] = budget
		}
	}

	return s, nil
}

// catalog 将快照还原为目录（用于写时复制）
func (s *snapshot) catalog() *Catalog {
	cat := &Catalog{
		DefaultTokenBudget: s.defaultBudget,
		Providers:          make(map[llm.ProviderKind][]string, len(s.models)),
		Aliases:            make(map[string]string, len(s.aliases)),
		TokenBudgets:       make(map[string]int, len(s.budgets)),
	}
	for k, v := range s.models {
		cat.Providers[k] = slices.Clone(v)
	}
	for k, v := range s.aliases {
		cat.Aliases[k] = v
	}
	for k, v := range s.budgets {
		cat.TokenBudgets[k] = v
	}
	return cat
}

// ═══════════════════════════════════════════════════════════════════════════
// Registry
// ═══════════════════════════════════════════════════════════════════════════

// Registry 模型注册表
type Registry struct {
	mu   sync.Mutex // 串行化写操作
	snap atomic.Pointer[snapshot]
}

// New 从目录创建注册表，目录无效时立即失败
func New(cat *Catalog) (*Registry, error) {
	s, err := build(cat)
	if err != nil {
		return nil, err
	}
	r := &Registry{}
	r.snap.Store(s)
	return r, nil
}

// NewBuiltin 使用内嵌目录创建注册表
func NewBuiltin() (*Registry, error) {
	cat, err := Builtin()
	if err != nil {
		return nil, llm.NewConfigError("load builtin catalog", err)
	}
	return New(cat)
}

// Resolve 将别名或模型名解析为 (ModelName, ProviderKind)
//
// 别名按精确字符串匹配；不做前缀或模糊匹配。
func (r *Registry) Resolve(name string) (string, llm.ProviderKind, error) {
	s := r.snap.Load()
	model := name
	if target, ok := s.aliases[name]; ok {
		model = target
	}
	kind, ok := s.index[model]
	if !ok {
		return "", "", llm.NewUnknownModelError(name)
	}
	return model, kind, nil
}

// ListProviderModels 返回 Provider 的模型列表（副本，按声明顺序）
func (r *Registry) ListProviderModels(kind llm.ProviderKind) []string {
	return slices.Clone(r.snap.Load().models[kind])
}

// Aliases 返回别名表副本
func (r *Registry) Aliases() map[string]string {
	s := r.snap.Load()
	out := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		out[k] = v
	}
	return out
}

// AliasNames 返回排序后的别名列表
func (r *Registry) AliasNames() []string {
	s := r.snap.Load()
	names := make([]string, 0, len(s.aliases))
	for k := range s.aliases {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// TokenBudget 返回模型的 token 预算，未登记时返回默认值
func (r *Registry) TokenBudget(model string) int {
	s := r.snap.Load()
	if b, ok := s.budgets[model]; ok {
		return b
	}
	return s.defaultBudget
}

// Catalog 返回当前目录的副本
func (r *Registry) Catalog() *Catalog {
	return r.snap.Load().catalog()
}

// ═══════════════════════════════════════════════════════════════════════════
// 管理操作（写时复制）
// ═══════════════════════════════════════════════════════════════════════════

// AddModels 向 Provider 追加模型，已存在的名字忽略
func (r *Registry) AddModels(kind llm.ProviderKind, names ...string) error {
	return r.update(func(cat *Catalog) {
		existing := cat.Providers[kind]
		for _, n := range names {
			if !slices.Contains(existing, n) {
				existing = append(existing, n)
			}
		}
		cat.Providers[kind] = existing
	})
}

// ReplaceModels 替换 Provider 的模型列表
//
// 如果替换会使某个别名悬空，操作失败且注册表保持不变。
func (r *Registry) ReplaceModels(kind llm.ProviderKind, names []string) error {
	return r.update(func(cat *Catalog) {
		cat.Providers[kind] = slices.Clone(names)
	})
}

// SetAlias 新增或修改别名
func (r *Registry) SetAlias(alias, target string) error {
	return r.update(func(cat *Catalog) {
		cat.Aliases[alias] = target
	})
}

func (r *Registry) update(mutate func(cat *Catalog)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cat := r.snap.Load().catalog()
	mutate(cat)

	next, err := build(cat)
	if err != nil {
		return err
	}
	r.snap.Store(next)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 进程级默认注册表
// ═══════════════════════════════════════════════════════════════════════════

var (
	defaultOnce sync.Once
	defaultReg  atomic.Pointer[Registry]
)

// Default 返回进程级注册表，首次调用时加载内嵌目录
//
// 内嵌目录随二进制发布，加载失败属于构建错误，直接 panic。
func Default() *Registry {
	defaultOnce.Do(func() {
		if defaultReg.Load() != nil {
			return
		}
		r, err := NewBuiltin()
		if err != nil {
			panic(fmt.Sprintf("registry: builtin catalog: %v", err))
		}
		defaultReg.CompareAndSwap(nil, r)
	})
	return defaultReg.Load()
}

// SetDefault 替换进程级注册表（如加载自定义目录文件）
func SetDefault(r *Registry) {
	if r == nil {
		return
	}
	defaultReg.Store(r)
}

// Resolve 使用默认注册表解析
func Resolve(name string) (string, llm.ProviderKind, error) {
	return Default().Resolve(name)
}
