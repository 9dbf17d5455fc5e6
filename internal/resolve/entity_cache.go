package resolve

// EntityCache memoizes created entities by their canonical key, guaranteeing
// exactly one entity instance per distinct key for the cache's lifetime.
// It deliberately does not evict: the dedup invariant requires every key ever
// created to stay visible until Clear.
type EntityCache[T any] struct {
	entities map[string]T
	order    []string
}

// NewEntityCache creates an empty entity cache.
func NewEntityCache[T any]() *EntityCache[T] {
	return &EntityCache[T]{
		entities: make(map[string]T),
	}
}

// GetOrCreate returns the entity stored under key, invoking factory to
// construct and store it on first use. The second result reports whether the
// entity was created by this call.
func (c *EntityCache[T]) GetOrCreate(key string, factory func() T) (T, bool) {
	if entity, ok := c.entities[key]; ok {
		return entity, false
	}
	entity := factory()
	c.entities[key] = entity
	c.order = append(c.order, key)
	return entity, true
}

// Get returns the entity stored under key, if any.
func (c *EntityCache[T]) Get(key string) (T, bool) {
	entity, ok := c.entities[key]
	return entity, ok
}

// Len returns the number of cached entities.
func (c *EntityCache[T]) Len() int {
	return len(c.entities)
}

// Values returns all cached entities in creation order, for batch
// persistence at the end of a run.
func (c *EntityCache[T]) Values() []T {
	values := make([]T, 0, len(c.order))
	for _, key := range c.order {
		values = append(values, c.entities[key])
	}
	return values
}

// Clear resets all state. Runs that must not share resolution history call
// this between batches.
func (c *EntityCache[T]) Clear() {
	c.entities = make(map[string]T)
	c.order = nil
}
