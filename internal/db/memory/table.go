package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/ukydev/gearguard/internal/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// table is a mutex-guarded set of documents keyed by id. Documents are
// copied through BSON on the way in and out, so callers never share memory
// with the table and values are normalized the way MongoDB stores them.
type table[T any] struct {
	mu       sync.RWMutex
	rows     map[primitive.ObjectID]T
	conflict func(existing, candidate *T) bool
}

func newTable[T any](conflict func(existing, candidate *T) bool) *table[T] {
	return &table[T]{rows: make(map[primitive.ObjectID]T), conflict: conflict}
}

func clone[T any](v *T) (T, error) {
	var out T
	raw, err := bson.Marshal(v)
	if err != nil {
		return out, err
	}
	err = bson.Unmarshal(raw, &out)
	return out, err
}

// withSet returns v with the top-level fields of set replaced and each
// stampOnce field written only when v has no value for it.
func withSet[T any](v *T, set bson.M, stampOnce map[string]time.Time) (T, error) {
	var out T
	raw, err := bson.Marshal(v)
	if err != nil {
		return out, err
	}
	doc := bson.M{}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return out, err
	}
	for k, val := range set {
		doc[k] = val
	}
	for k, at := range stampOnce {
		if _, explicit := set[k]; explicit {
			continue
		}
		if cur, ok := doc[k]; !ok || cur == nil {
			doc[k] = at
		}
	}
	raw, err = bson.Marshal(doc)
	if err != nil {
		return out, err
	}
	err = bson.Unmarshal(raw, &out)
	return out, err
}

func (t *table[T]) checkConflict(id primitive.ObjectID, candidate *T) error {
	if t.conflict == nil {
		return nil
	}
	for otherID, existing := range t.rows {
		if otherID == id {
			continue
		}
		if t.conflict(&existing, candidate) {
			return db.ErrDuplicateKey
		}
	}
	return nil
}

func (t *table[T]) insert(id primitive.ObjectID, v *T) error {
	stored, err := clone(v)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[id]; exists {
		return db.ErrDuplicateKey
	}
	if err := t.checkConflict(id, &stored); err != nil {
		return err
	}
	t.rows[id] = stored
	return nil
}

func (t *table[T]) get(id primitive.ObjectID) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	out, err := clone(&row)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *table[T]) getMany(ids []primitive.ObjectID) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		row, ok := t.rows[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		c, err := clone(&row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// find returns copies of the matching rows ordered by less, then paginated.
func (t *table[T]) find(match func(*T) bool, less func(a, b *T) bool, opts db.FindOptions) ([]T, error) {
	t.mu.RLock()
	matched := make([]T, 0)
	for _, row := range t.rows {
		if match(&row) {
			c, err := clone(&row)
			if err != nil {
				t.mu.RUnlock()
				return nil, err
			}
			matched = append(matched, c)
		}
	}
	t.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return less(&matched[i], &matched[j]) })

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			return []T{}, nil
		}
		matched = matched[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < int64(len(matched)) {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

func (t *table[T]) count(match func(*T) bool) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var n int64
	for _, row := range t.rows {
		if match(&row) {
			n++
		}
	}
	return n
}

// update runs fn on a copy of the row under the write lock and stores the result.
func (t *table[T]) update(id primitive.ObjectID, fn func(*T) (T, error)) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	next, err := fn(&row)
	if err != nil {
		return nil, err
	}
	if err := t.checkConflict(id, &next); err != nil {
		return nil, err
	}
	t.rows[id] = next
	out, err := clone(&next)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *table[T]) setFields(id primitive.ObjectID, set bson.M, stampOnce map[string]time.Time) (*T, error) {
	return t.update(id, func(row *T) (T, error) {
		return withSet(row, set, stampOnce)
	})
}

func (t *table[T]) remove(id primitive.ObjectID) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	delete(t.rows, id)
	return &row, nil
}

func newestFirst(aCreated, bCreated time.Time, aID, bID primitive.ObjectID) bool {
	if !aCreated.Equal(bCreated) {
		return aCreated.After(bCreated)
	}
	return aID.Hex() > bID.Hex()
}
