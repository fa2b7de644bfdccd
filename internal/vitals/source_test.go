package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualSource_SubscribeAndEmit(t *testing.T) {
	source := NewManualSource()

	var got []Entry
	cancel, err := source.Subscribe(CategoryPaint, func(e Entry) {
		got = append(got, e)
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, source.SubscriberCount(CategoryPaint))

	source.Emit(Entry{Category: CategoryPaint, Name: EntryFirstContentfulPaint, StartTime: 1200})
	source.Emit(Entry{Category: CategoryLCP, StartTime: 2000}) // different category, not delivered

	assert.Len(t, got, 1)
	assert.Equal(t, 1200.0, got[0].StartTime)

	cancel()
	assert.Equal(t, 0, source.SubscriberCount(CategoryPaint))

	source.Emit(Entry{Category: CategoryPaint, Name: EntryFirstContentfulPaint, StartTime: 1500})
	assert.Len(t, got, 1, "Cancelled subscriptions receive nothing")
}

func TestManualSource_Unsupported(t *testing.T) {
	source := NewManualSource()
	source.SetUnsupported(CategoryFirstInput)

	cancel, err := source.Subscribe(CategoryFirstInput, func(Entry) {})
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Nil(t, cancel)
}

func TestUnsupportedSource(t *testing.T) {
	var source UnsupportedSource

	for _, category := range []Category{CategoryPaint, CategoryLCP, CategoryFirstInput, CategoryLayoutShift} {
		cancel, err := source.Subscribe(category, func(Entry) {})
		assert.ErrorIs(t, err, ErrUnsupported)
		assert.Nil(t, cancel)
	}
}
