package state

// stackedMap keeps key/value levels in a stack. Each level inherits the
// values of the levels below it, which gives cheap checkpoint and revert.
type stackedMap struct {
	src       mapGetter
	levels    []*level
	revisions map[stateKey][]int
}

type level struct {
	kvs     map[stateKey]any
	journal []journalEntry
}

type journalEntry struct {
	key   stateKey
	value any
}

// mapGetter reads a key that has not been written at any level.
type mapGetter func(key stateKey) (value any, exist bool, err error)

func newStackedMap(src mapGetter) *stackedMap {
	return &stackedMap{src: src, revisions: make(map[stateKey][]int)}
}

func (sm *stackedMap) depth() int { return len(sm.levels) }

// push adds a level and returns the depth before the push.
func (sm *stackedMap) push() int {
	sm.levels = append(sm.levels, &level{kvs: make(map[stateKey]any)})
	return len(sm.levels) - 1
}

// pop drops the top level and every put made since it was pushed.
func (sm *stackedMap) pop() {
	top := sm.levels[len(sm.levels)-1]
	for key := range top.kvs {
		revs := sm.revisions[key]
		revs = revs[:len(revs)-1]
		if len(revs) == 0 {
			delete(sm.revisions, key)
		} else {
			sm.revisions[key] = revs
		}
	}
	sm.levels = sm.levels[:len(sm.levels)-1]
}

func (sm *stackedMap) popTo(depth int) {
	for len(sm.levels) > depth {
		sm.pop()
	}
}

func (sm *stackedMap) get(key stateKey) (any, bool, error) {
	if revs, ok := sm.revisions[key]; ok {
		if v, ok := sm.levels[revs[len(revs)-1]].kvs[key]; ok {
			return v, true, nil
		}
	}
	return sm.src(key)
}

// put writes at the top level. It panics when no level has been pushed.
func (sm *stackedMap) put(key stateKey, value any) {
	rev := len(sm.levels) - 1
	top := sm.levels[rev]
	if _, seen := top.kvs[key]; !seen {
		sm.revisions[key] = append(sm.revisions[key], rev)
	}
	top.kvs[key] = value
	top.journal = append(top.journal, journalEntry{key: key, value: value})
}

// journal returns every put in order, bottom level first.
func (sm *stackedMap) journal() []journalEntry {
	var out []journalEntry
	for _, lvl := range sm.levels {
		out = append(out, lvl.journal...)
	}
	return out
}

// collapse folds every level into a single base level, keeping the journal
// order and the latest value per key.
func (sm *stackedMap) collapse() {
	if len(sm.levels) <= 1 {
		return
	}
	base := &level{kvs: make(map[stateKey]any)}
	for _, lvl := range sm.levels {
		for key, value := range lvl.kvs {
			base.kvs[key] = value
		}
		base.journal = append(base.journal, lvl.journal...)
	}
	sm.levels = []*level{base}
	sm.revisions = make(map[stateKey][]int, len(base.kvs))
	for key := range base.kvs {
		sm.revisions[key] = []int{0}
	}
}
