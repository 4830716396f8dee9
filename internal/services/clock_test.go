package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIDSource_Reference(t *testing.T) {
	clock := fixedClock{now: time.UnixMilli(1718445600000).UTC()}
	ids := NewIDSource(clock)

	ref := ids.Reference(RefTransfer)
	assert.True(t, strings.HasPrefix(ref, "TRF1718445600000"))
	assert.Len(t, ref, len("TRF1718445600000")+6)

	t.Run("references are unique", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			r := ids.Reference(RefDeposit)
			assert.False(t, seen[r])
			seen[r] = true
		}
	})
}

func TestIDSource_NewID(t *testing.T) {
	ids := NewIDSource(SystemClock)
	a, b := ids.NewID(), ids.NewID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
