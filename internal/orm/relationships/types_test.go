package relationships

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/ormtest"
)

func TestCascade(t *testing.T) {
	t.Run("begin once per entity", func(t *testing.T) {
		c := NewCascade(0)
		p := &ormtest.Person{}

		ok, err := c.Begin(p)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, c.InProgress(p))

		ok, err = c.Begin(p)
		require.NoError(t, err)
		assert.False(t, ok)

		c.End(p)
		assert.True(t, c.InProgress(p))
	})

	t.Run("depth limit", func(t *testing.T) {
		c := NewCascade(2)
		_, err := c.Begin(&ormtest.Person{})
		require.NoError(t, err)
		_, err = c.Begin(&ormtest.Person{})
		require.NoError(t, err)
		_, err = c.Begin(&ormtest.Person{})
		assert.ErrorIs(t, err, ErrMaxDepthExceeded)
	})

	t.Run("restore puts back the first snapshot", func(t *testing.T) {
		c := NewCascade(0)
		p := &ormtest.Person{}
		q := &ormtest.Person{}
		q.AssignID(5)
		q.MarkSaved()

		c.Touch(p)
		p.AssignID(1)
		c.Touch(p)
		p.AddJoinID("friends", 5)
		c.Touch(q)
		q.AssignID(6)

		assert.Len(t, c.Records(), 2)
		c.Restore()
		assert.Zero(t, p.ID())
		assert.Empty(t, p.JoinTables())
		assert.Equal(t, int64(5), q.ID())
		assert.True(t, q.IsSaved())
	})

	t.Run("mark saved clears buckets", func(t *testing.T) {
		c := NewCascade(0)
		p := &ormtest.Person{}
		c.Touch(p)
		p.AssignID(1)
		p.AddJoinID("friends", 2)

		c.MarkSaved()
		assert.True(t, p.IsSaved())
		assert.Empty(t, p.JoinTables())
	})
}

func TestResolution(t *testing.T) {
	res := &Resolution{}
	a := &ormtest.Album{}
	b := &ormtest.Album{}

	res.AddPrerequisite(a)
	res.AddPrerequisite(a)
	assert.Len(t, res.Prerequisites, 1)

	res.SetForeignKey("album_id", a)
	res.SetForeignKey("album_id", b)
	require.Len(t, res.ForeignKeys, 1)
	assert.Same(t, b, res.ForeignKeys[0].Target)

	u := DeferredUpdate{Table: "song", Column: "album_id", Target: a}
	res.Defer(u)
	res.Defer(u)
	assert.Len(t, res.Deferred, 1)

	var none model.Entity
	assert.Nil(t, ForeignKey{Column: "x", Target: none}.Value())
}
