package index

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPrefixSearchOrderAndLimit(t *testing.T) {
	idx := NewPrefixIndex()
	for _, name := range []string{"Apple Inc.", "Applied Materials", "Amazon.com", "apple lowercase", "Alphabet"} {
		idx.Insert(name)
	}

	got := idx.PrefixSearch("App", 10)
	want := []string{"Apple Inc.", "Applied Materials"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PrefixSearch(App) = %v, want %v", got, want)
	}

	got = idx.PrefixSearch("A", 2)
	want = []string{"Alphabet", "Amazon.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PrefixSearch(A, 2) = %v, want %v", got, want)
	}

	if got := idx.PrefixSearch("A", 0); len(got) != 0 {
		t.Fatalf("limit为0应返回空, got %v", got)
	}
	if got := idx.PrefixSearch("Zzz", 10); len(got) != 0 {
		t.Fatalf("无匹配应返回空, got %v", got)
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	idx := NewPrefixIndex()
	idx.Insert("Apple Inc.")

	idx.Remove("Microsoft")
	idx.Remove("Apple") // 只是前缀，不是键

	if !idx.Contains("Apple Inc.") || idx.Len() != 1 {
		t.Fatalf("删除不存在的键不应影响索引")
	}

	idx.Remove("Apple Inc.")
	if idx.Contains("Apple Inc.") || idx.Len() != 0 {
		t.Fatalf("删除后仍然存在")
	}
}

func TestReplace(t *testing.T) {
	idx := NewPrefixIndex()
	idx.Insert("Stale Corp")

	if !idx.ReplaceIfUnchanged(idx.Generation(), []string{"Coca-Cola", "Costco", "Coca-Cola"}) {
		t.Fatal("代数未变时应替换")
	}

	if idx.Contains("Stale Corp") {
		t.Fatal("Replace 后旧名称应消失")
	}
	if got := idx.PrefixSearch("Co", 10); !reflect.DeepEqual(got, []string{"Coca-Cola", "Costco"}) {
		t.Fatalf("got %v", got)
	}
}

func TestReplaceSkippedAfterMutation(t *testing.T) {
	idx := NewPrefixIndex()
	idx.Insert("Apple Inc.")

	// 读快照后发生删除
	gen := idx.Generation()
	snapshot := []string{"Apple Inc."}
	idx.Remove("Apple Inc.")

	if idx.ReplaceIfUnchanged(gen, snapshot) {
		t.Fatal("期间有写入时不应替换")
	}
	if idx.Contains("Apple Inc.") {
		t.Fatal("已删除的名称被旧快照恢复")
	}

	// 无效删除同样使快照失效
	gen = idx.Generation()
	idx.Remove("Nobody")
	if idx.ReplaceIfUnchanged(gen, []string{"Ghost"}) {
		t.Fatal("代数已变化")
	}

	if !idx.ReplaceIfUnchanged(idx.Generation(), []string{"Microsoft"}) || !idx.Contains("Microsoft") {
		t.Fatal("重新读取后应能替换")
	}
}

func TestConcurrentMutation(t *testing.T) {
	idx := NewPrefixIndex()
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				name := fmt.Sprintf("Company %d-%d", w, i)
				idx.Insert(name)
				if res := idx.PrefixSearch("Company", 10); len(res) == 0 {
					t.Errorf("插入后查询不到结果")
					return
				}
				if i%2 == 0 {
					idx.Remove(name)
				}
			}
		}(w)
	}
	wg.Wait()

	if got := idx.Len(); got != 8*100 {
		t.Fatalf("Len = %d, want %d", got, 8*100)
	}
}

func TestPrefixIndexProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	nameGen := gen.Identifier()

	properties.Property("重复插入只产生一条结果", prop.ForAll(
		func(name string) bool {
			idx := NewPrefixIndex()
			idx.Insert(name)
			idx.Insert(name)

			count := 0
			for _, got := range idx.PrefixSearch(name, 10) {
				if got == name {
					count++
				}
			}
			return count == 1
		},
		nameGen,
	))

	properties.Property("名称的任一非空前缀都能查到该名称", prop.ForAll(
		func(names []string, pick int, cut int) bool {
			if len(names) == 0 {
				return true
			}
			idx := NewPrefixIndex()
			for _, n := range names {
				idx.Insert(n)
			}

			target := names[pick%len(names)]
			prefix := target[:1+cut%len(target)]

			// 结果按字典序，返回前10个以内时目标必须出现；否则目标之前至少有10个更小的键
			results := idx.PrefixSearch(prefix, 10)
			for _, r := range results {
				if r == target {
					return true
				}
			}
			return len(results) == 10 && results[9] < target
		},
		gen.SliceOf(nameGen),
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1000),
	))

	properties.Property("结果均以前缀开头且有序", prop.ForAll(
		func(names []string, prefix string) bool {
			idx := NewPrefixIndex()
			for _, n := range names {
				idx.Insert(n)
			}
			results := idx.PrefixSearch(prefix, 10)
			for i, r := range results {
				if !strings.HasPrefix(r, prefix) {
					return false
				}
				if i > 0 && results[i-1] >= r {
					return false
				}
			}
			return len(results) <= 10
		},
		gen.SliceOf(nameGen),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
