package service

import (
	"context"
	"errors"
	"fmt"
)

// 对账期间索引持续被修改时的最大重读次数
const hydrateAttempts = 3

// ErrIndexBusy 多次重读后索引仍在变化，本轮放弃替换
var ErrIndexBusy = errors.New("索引在对账期间持续变化")

// NameSource 提供全部公司名
type NameSource interface {
	AllNames(ctx context.Context) ([]string, error)
}

// HydrateIndex 用库中全部公司名重建索引，启动时和定时对账时调用。
// 读库期间索引有增删时丢弃这次快照重新读取，已提交的删除不会被旧快照恢复。
func HydrateIndex(ctx context.Context, source NameSource, index NameIndex) (int, error) {
	for attempt := 0; attempt < hydrateAttempts; attempt++ {
		generation := index.Generation()

		names, err := source.AllNames(ctx)
		if err != nil {
			return 0, fmt.Errorf("加载公司名失败: %w", err)
		}

		if index.ReplaceIfUnchanged(generation, names) {
			return len(names), nil
		}
	}
	return 0, ErrIndexBusy
}
