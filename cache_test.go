package wf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetThenGet(t *testing.T) {
	c := NewCache(0, 0)
	op := MakeRead(NewCollection("people"))
	task := ReadTask{Coll: NewCollection("people")}

	_, ok := c.Get(op)
	assert.False(t, ok)

	c.Set(op, task)

	got, ok := c.Get(op)
	assert.True(t, ok)
	assert.Equal(t, TaskJSON(task), TaskJSON(got))
}

func TestCache_StructurallyEqualOpsShareAKey(t *testing.T) {
	c := NewCache(0, 0)
	a := MakeMatch(MakeRead(NewCollection("people")), EqSel(Field("age"), int64(18)))
	b := MakeMatch(MakeRead(NewCollection("people")), EqSel(Field("age"), int64(18)))

	c.Set(a, PureTask{Value: 1})

	got, ok := c.Get(b)
	assert.True(t, ok)
	assert.Equal(t, TaskJSON(PureTask{Value: 1}), TaskJSON(got))
}

func TestCache_DifferentOpsDoNotCollide(t *testing.T) {
	c := NewCache(0, 0)
	a := MakeRead(NewCollection("people"))
	b := MakeRead(NewCollection("orders"))

	c.Set(a, PureTask{Value: "a"})

	_, ok := c.Get(b)
	assert.False(t, ok)
}

func TestCache_ExpirationEvictsEntries(t *testing.T) {
	c := NewCache(time.Millisecond, time.Millisecond)
	op := MakeRead(NewCollection("people"))
	c.Set(op, PureTask{Value: 1})

	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(op)
	assert.False(t, ok)
}
