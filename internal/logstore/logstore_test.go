package logstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog_AppendPreservesOrder(t *testing.T) {
	l := New()
	l.Append("a")
	l.Append("b")
	l.Append("c")
	assert.Equal(t, []string{"a", "b", "c"}, l.All())
	assert.Equal(t, 3, l.Len())
}

func TestLog_ConcurrentAppend(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append("x")
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, l.Len())
}
