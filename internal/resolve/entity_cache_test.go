package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omics-warehouse-loader/internal/domain"
)

func TestEntityCache_GetOrCreate(t *testing.T) {
	cache := NewEntityCache[*domain.Gene]()

	t.Run("Creates_Once_Per_Key", func(t *testing.T) {
		calls := 0
		factory := func() *domain.Gene {
			calls++
			return domain.NewGene("1017")
		}

		first, created := cache.GetOrCreate("1017", factory)
		require.True(t, created)
		second, created := cache.GetOrCreate("1017", factory)
		require.False(t, created)

		assert.Same(t, first, second)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("Values_In_Creation_Order", func(t *testing.T) {
		cache := NewEntityCache[*domain.Gene]()
		for _, id := range []string{"7157", "1017", "672"} {
			cache.GetOrCreate(id, func() *domain.Gene { return domain.NewGene(id) })
		}

		values := cache.Values()
		require.Len(t, values, 3)
		assert.Equal(t, "7157", values[0].PrimaryIdentifier)
		assert.Equal(t, "1017", values[1].PrimaryIdentifier)
		assert.Equal(t, "672", values[2].PrimaryIdentifier)
	})

	t.Run("Clear_Resets_State", func(t *testing.T) {
		cache := NewEntityCache[*domain.Gene]()
		before, _ := cache.GetOrCreate("1017", func() *domain.Gene { return domain.NewGene("1017") })

		cache.Clear()
		assert.Equal(t, 0, cache.Len())
		assert.Empty(t, cache.Values())

		after, created := cache.GetOrCreate("1017", func() *domain.Gene { return domain.NewGene("1017") })
		require.True(t, created)
		assert.NotSame(t, before, after)
	})
}
