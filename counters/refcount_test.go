package counters_test

import (
	"sync"
	"testing"

	"github.com/cvet/scriptcore/counters"
	"github.com/stretchr/testify/assert"
)

func TestRefCount(t *testing.T) {
	var rc counters.RefCount
	rc.Init()
	assert.Equal(t, 1, rc.Count())

	for k := 1; k <= 5; k++ {
		rc.AddRef()
		assert.Equal(t, 1+k, rc.Count())
	}
	for k := 0; k < 5; k++ {
		assert.False(t, rc.Release())
	}
	assert.Equal(t, 1, rc.Count())
	assert.True(t, rc.Release())
}

func TestRefCountFlag(t *testing.T) {
	var rc counters.RefCount
	rc.Init()
	assert.False(t, rc.Flag())
	rc.SetFlag()
	assert.True(t, rc.Flag())
	rc.AddRef()
	assert.False(t, rc.Flag())
	rc.SetFlag()
	rc.Release()
	assert.False(t, rc.Flag())
}

func TestRefCountConcurrent(t *testing.T) {
	var rc counters.RefCount
	rc.Init()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				rc.AddRef()
				rc.SetFlag()
				rc.Release()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, rc.Count())
}
