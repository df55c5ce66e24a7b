// Package index 进程内公司名前缀索引，用于自动补全
package index

import (
	"sync"

	"github.com/armon/go-radix"
)

// PrefixIndex 公司名集合，支持前缀查询
//
// 所有方法可并发调用：写操作持有写锁，查询持有读锁，查询不会看到半完成的修改。
// 索引不落盘，进程重启后为空，需要调用 ReplaceIfUnchanged 从关系库回填。
//
// 每次 Insert、Remove 和成功的替换都会递增代数。对账先记下 Generation，再读库，
// 最后用 ReplaceIfUnchanged 替换；期间有写入则放弃，避免用旧快照覆盖新的增删。
type PrefixIndex struct {
	tree       *radix.Tree
	generation uint64
	mutex      sync.RWMutex
}

// NewPrefixIndex 创建空索引
func NewPrefixIndex() *PrefixIndex {
	return &PrefixIndex{
		tree: radix.New(),
	}
}

// Insert 加入名称，重复加入无副作用
func (p *PrefixIndex) Insert(name string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.tree.Insert(name, struct{}{})
	p.generation++
}

// Remove 删除名称，不存在时忽略
func (p *PrefixIndex) Remove(name string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.tree.Delete(name)
	p.generation++
}

// PrefixSearch 按字典序返回最多 limit 个以 prefix 开头的名称
func (p *PrefixIndex) PrefixSearch(prefix string, limit int) []string {
	if limit <= 0 {
		return []string{}
	}

	p.mutex.RLock()
	defer p.mutex.RUnlock()

	result := make([]string, 0, limit)
	p.tree.WalkPrefix(prefix, func(key string, _ interface{}) bool {
		result = append(result, key)
		return len(result) >= limit
	})

	return result
}

// Contains 判断名称是否存在
func (p *PrefixIndex) Contains(name string) bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	_, ok := p.tree.Get(name)
	return ok
}

// Len 索引中的名称数量
func (p *PrefixIndex) Len() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.tree.Len()
}

// Generation 当前代数
func (p *PrefixIndex) Generation() uint64 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.generation
}

// ReplaceIfUnchanged 仅当代数仍为 generation 时用 names 整体替换索引内容，返回是否替换
func (p *PrefixIndex) ReplaceIfUnchanged(generation uint64, names []string) bool {
	tree := buildTree(names)

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.generation != generation {
		return false
	}
	p.tree = tree
	p.generation++
	return true
}

func buildTree(names []string) *radix.Tree {
	tree := radix.New()
	for _, name := range names {
		tree.Insert(name, struct{}{})
	}
	return tree
}
