package implcaps

import (
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/persistence/impl/memory"
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestTimeEncoder(t *testing.T) {
	t.Run("stored times are retrieved to millisecond precision", func(t *testing.T) {
		s := memory.New()
		expected := time.UnixMilli(1700000000123)

		assert.NoError(t, persistence.StoreComplex(s, LastChangedKey, expected, TimeEncoder))

		actual, found := persistence.RetrieveComplex(s, LastChangedKey, TimeDecoder)
		assert.True(t, found)
		assert.True(t, expected.Equal(actual))
	})

	t.Run("missing times return the zero time", func(t *testing.T) {
		actual, found := persistence.RetrieveComplex(memory.New(), LastChangedKey, TimeDecoder)
		assert.False(t, found)
		assert.True(t, actual.IsZero())
	})
}
