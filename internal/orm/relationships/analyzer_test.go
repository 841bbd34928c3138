package relationships

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/ormtest"
	"github.com/litemap/litemap/internal/orm/schema"
)

func setupResolver(t *testing.T) (*Resolver, *model.Catalog) {
	t.Helper()
	defs := ormtest.All()
	s, err := schema.NewBuilder(schema.CaseLower).Build(defs)
	require.NoError(t, err)
	catalog, err := model.NewCatalog(defs...)
	require.NoError(t, err)
	return NewResolver(s, catalog), catalog
}

func resolve(t *testing.T, r *Resolver, catalog *model.Catalog, c *Cascade, e model.Entity) *Resolution {
	t.Helper()
	def, err := catalog.For(e)
	require.NoError(t, err)
	res, err := r.Resolve(context.Background(), c, def, e)
	require.NoError(t, err)
	return res
}

func TestToOneAnalyzer(t *testing.T) {
	r, catalog := setupResolver(t)

	t.Run("unsaved wife is a prerequisite and gets mirrored", func(t *testing.T) {
		wife := &ormtest.Wife{Name: "Ann"}
		husband := &ormtest.Husband{Name: "Bob", Wife: wife}

		res := resolve(t, r, catalog, NewCascade(0), husband)

		require.Len(t, res.Prerequisites, 1)
		assert.Same(t, wife, res.Prerequisites[0])
		assert.Same(t, husband, wife.Husband)
		require.Len(t, res.ForeignKeys, 1)
		assert.Equal(t, "wife_id", res.ForeignKeys[0].Column)
		assert.Nil(t, res.ForeignKeys[0].Value(), "wife has no id yet")

		wife.AssignID(7)
		assert.Equal(t, int64(7), res.ForeignKeys[0].Value())
		assert.Empty(t, res.Deferred)
	})

	t.Run("non-holding side defers the key update", func(t *testing.T) {
		husband := &ormtest.Husband{Name: "Bob"}
		husband.AssignID(3)
		wife := &ormtest.Wife{Name: "Ann", Husband: husband}

		res := resolve(t, r, catalog, NewCascade(0), wife)

		assert.Empty(t, res.Prerequisites)
		assert.Empty(t, res.ForeignKeys)
		require.Len(t, res.Deferred, 1)
		assert.Equal(t, DeferredUpdate{Table: "husband", Column: "wife_id", Target: husband}, res.Deferred[0])
		assert.Same(t, wife, husband.Wife)
	})

	t.Run("reverse field already set is kept", func(t *testing.T) {
		other := &ormtest.Husband{Name: "Carl"}
		wife := &ormtest.Wife{Name: "Ann", Husband: other}
		husband := &ormtest.Husband{Name: "Bob", Wife: wife}

		resolve(t, r, catalog, NewCascade(0), husband)
		assert.Same(t, other, wife.Husband)
	})

	t.Run("nil association stores NULL on the holder", func(t *testing.T) {
		res := resolve(t, r, catalog, NewCascade(0), &ormtest.Husband{Name: "Bob"})
		require.Len(t, res.ForeignKeys, 1)
		assert.Nil(t, res.ForeignKeys[0].Target)
		assert.Nil(t, res.ForeignKeys[0].Value())
	})

	t.Run("entity in progress is not a prerequisite", func(t *testing.T) {
		wife := &ormtest.Wife{Name: "Ann"}
		husband := &ormtest.Husband{Name: "Bob", Wife: wife}

		c := NewCascade(0)
		ok, err := c.Begin(wife)
		require.NoError(t, err)
		require.True(t, ok)

		res := resolve(t, r, catalog, c, husband)
		assert.Empty(t, res.Prerequisites)
	})

	t.Run("scalar side of many-to-one joins the reverse collection once", func(t *testing.T) {
		album := &ormtest.Album{Title: "Blue"}
		song := &ormtest.Song{Title: "River", Album: album}

		c := NewCascade(0)
		res := resolve(t, r, catalog, c, song)
		resolve(t, r, catalog, c, song)

		require.Len(t, album.Songs, 1)
		assert.Same(t, song, album.Songs[0])
		require.Len(t, res.ForeignKeys, 1)
		assert.Equal(t, "album_id", res.ForeignKeys[0].Column)
		assert.Len(t, res.Prerequisites, 1)
	})
}

func TestOneToManyAnalyzer(t *testing.T) {
	r, catalog := setupResolver(t)

	saved := &ormtest.Song{Title: "River"}
	saved.AssignID(4)
	fresh := &ormtest.Song{Title: "Lake"}
	album := &ormtest.Album{Title: "Blue", Songs: []*ormtest.Song{saved, fresh}}

	res := resolve(t, r, catalog, NewCascade(0), album)

	assert.Same(t, album, saved.Album)
	assert.Same(t, album, fresh.Album)
	assert.Empty(t, res.Prerequisites)
	assert.Empty(t, res.ForeignKeys)
	require.Len(t, res.Deferred, 1)
	assert.Equal(t, DeferredUpdate{Table: "song", Column: "album_id", Target: saved}, res.Deferred[0])
}

func TestManyToManyAnalyzer(t *testing.T) {
	r, catalog := setupResolver(t)

	t.Run("bidirectional", func(t *testing.T) {
		persisted := &ormtest.Student{Name: "Kim"}
		persisted.AssignID(9)
		fresh := &ormtest.Student{Name: "Lee"}
		teacher := &ormtest.Teacher{Name: "Moss", Students: []*ormtest.Student{persisted, fresh}}

		c := NewCascade(0)
		res := resolve(t, r, catalog, c, teacher)
		resolve(t, r, catalog, c, teacher)

		assert.Equal(t, []string{"students"}, teacher.JoinTables())
		assert.Equal(t, []int64{9}, teacher.JoinIDs("students"))
		require.Len(t, persisted.Teachers, 1)
		require.Len(t, fresh.Teachers, 1)
		assert.Same(t, teacher, fresh.Teachers[0])

		require.Len(t, res.Joins, 1)
		join := res.Joins[0]
		assert.Equal(t, "student_teacher", join.Table)
		assert.Equal(t, "teacher_id", join.Column)
		assert.Equal(t, "student_id", join.OtherColumn)
		assert.False(t, join.Symmetric)
	})

	t.Run("symmetric self reference grows at most once", func(t *testing.T) {
		a := &ormtest.Person{Name: "A"}
		b := &ormtest.Person{Name: "B"}
		b.AssignID(2)
		a.Friends = []*ormtest.Person{b}

		c := NewCascade(0)
		res := resolve(t, r, catalog, c, a)
		resolve(t, r, catalog, c, a)

		require.Len(t, b.Friends, 1)
		assert.Same(t, a, b.Friends[0])
		require.Len(t, a.Friends, 1)
		assert.Equal(t, []int64{2}, a.JoinIDs("friends"))

		require.Len(t, res.Joins, 1)
		assert.True(t, res.Joins[0].Symmetric)
		assert.Equal(t, "person_person", res.Joins[0].Table)
		assert.Equal(t, "person_id", res.Joins[0].Column)
		assert.Equal(t, "associated_person_id", res.Joins[0].OtherColumn)
	})

	t.Run("empty collection still declares the bucket", func(t *testing.T) {
		teacher := &ormtest.Teacher{Name: "Moss"}
		resolve(t, r, catalog, NewCascade(0), teacher)
		assert.Equal(t, []string{"students"}, teacher.JoinTables())
		assert.Empty(t, teacher.JoinIDs("students"))
	})
}

func TestResolver_UnknownAssociation(t *testing.T) {
	defs := []*model.Definition{ormtest.TeacherDef(), ormtest.StudentDef()}
	s, err := schema.NewBuilder(schema.CaseLower).Build(defs)
	require.NoError(t, err)

	// a catalog built from different definitions than the schema
	catalog, err := model.NewCatalog(ormtest.TeacherDef())
	require.NoError(t, err)
	r := NewResolver(s, catalog)

	teacher := &ormtest.Teacher{Students: []*ormtest.Student{{Name: "Kim"}}}
	def, _ := catalog.Lookup("Teacher")
	_, err = r.Resolve(context.Background(), NewCascade(0), def, teacher)
	require.Error(t, err)
	assert.True(t, ormerrors.IsConfiguration(err))

	_, err = r.Resolve(context.Background(), NewCascade(0), ormtest.HusbandDef(), &ormtest.Husband{})
	assert.ErrorIs(t, err, ErrUnknownAssociation)
}
