package blacklist

import (
	"sync"

	"github.com/cesargomez89/karaqueue/internal/constants"
	"github.com/cesargomez89/karaqueue/internal/domain"
)

// Engine holds the active rule set and memoizes verdicts per kara for the
// current generation. Load is the only write path and bumps the generation,
// so no verdict computed against an older rule set is ever returned.
type Engine struct {
	mu         sync.RWMutex
	criteria   []*domain.BlacklistCriteria
	generation uint64
	memo       map[int64]Result
}

func NewEngine() *Engine {
	return &Engine{memo: make(map[int64]Result)}
}

// Load replaces the rule set.
func (e *Engine) Load(criteria []*domain.BlacklistCriteria) {
	snapshot := make([]*domain.BlacklistCriteria, 0, len(criteria))
	for _, c := range criteria {
		if c == nil {
			continue
		}
		cp := *c
		snapshot = append(snapshot, &cp)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.criteria = snapshot
	e.generation++
	e.memo = make(map[int64]Result)
}

// Check evaluates kara against the loaded rules. Karas without an id are
// evaluated but not memoized.
func (e *Engine) Check(kara *domain.Kara) Result {
	if kara == nil {
		return Result{}
	}

	e.mu.RLock()
	if res, ok := e.memo[kara.ID]; ok && kara.ID != 0 {
		e.mu.RUnlock()
		return res.clone()
	}
	criteria := e.criteria
	generation := e.generation
	e.mu.RUnlock()

	res := Evaluate(kara, criteria)
	if kara.ID == 0 {
		return res
	}

	e.mu.Lock()
	if e.generation == generation {
		if len(e.memo) >= constants.BlacklistMemoLimit {
			e.memo = make(map[int64]Result)
		}
		e.memo[kara.ID] = res
	}
	e.mu.Unlock()
	return res.clone()
}

func (e *Engine) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}
