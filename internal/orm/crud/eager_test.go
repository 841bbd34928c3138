package crud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/ormtest"
)

func TestFindEager(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	album := &ormtest.Album{Title: "Blue"}
	require.NoError(t, f.ops.Save(ctx, &ormtest.Song{Title: "River", Album: album}))
	require.NoError(t, f.ops.Save(ctx, &ormtest.Song{Title: "Lake", Album: album}))
	require.NoError(t, f.ops.Save(ctx, &ormtest.Song{Title: "Loose"}))

	t.Run("one-to-many", func(t *testing.T) {
		var loaded ormtest.Album
		require.NoError(t, f.ops.FindEager(ctx, &loaded, album.ID()))
		require.Len(t, loaded.Songs, 2)
		assert.Equal(t, "River", loaded.Songs[0].Title)
		assert.Equal(t, "Lake", loaded.Songs[1].Title)
		assert.Nil(t, loaded.Songs[0].Album, "one level deep")
		assert.True(t, loaded.Songs[0].IsSaved())
	})

	t.Run("many-to-one", func(t *testing.T) {
		songs, err := f.ops.FindAllEager(ctx, f.def(t, "Song"))
		require.NoError(t, err)
		require.Len(t, songs, 3)
		river := songs[0].(*ormtest.Song)
		require.NotNil(t, river.Album)
		assert.Equal(t, "Blue", river.Album.Title)
		assert.Nil(t, songs[2].(*ormtest.Song).Album)
	})

	t.Run("plain find leaves associations empty", func(t *testing.T) {
		var loaded ormtest.Album
		require.NoError(t, f.ops.Find(ctx, &loaded, album.ID()))
		assert.Empty(t, loaded.Songs)
	})
}

func TestFindEager_OneToOne(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	wife := &ormtest.Wife{Name: "Ann"}
	husband := &ormtest.Husband{Name: "Bob", Wife: wife}
	require.NoError(t, f.ops.Save(ctx, husband))

	var h ormtest.Husband
	require.NoError(t, f.ops.FindEager(ctx, &h, husband.ID()))
	require.NotNil(t, h.Wife)
	assert.Equal(t, "Ann", h.Wife.Name)

	var w ormtest.Wife
	require.NoError(t, f.ops.FindEager(ctx, &w, wife.ID()))
	require.NotNil(t, w.Husband)
	assert.Equal(t, "Bob", w.Husband.Name)
}

func TestFindEager_ManyToMany(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := &ormtest.Teacher{Name: "Moss"}
	kim := &ormtest.Student{Name: "Kim"}
	lee := &ormtest.Student{Name: "Lee"}
	teacher.Students = []*ormtest.Student{kim, lee}
	require.NoError(t, f.ops.Save(ctx, kim))
	require.NoError(t, f.ops.Save(ctx, lee))
	require.NoError(t, f.ops.Save(ctx, teacher))

	var loaded ormtest.Teacher
	require.NoError(t, f.ops.FindEager(ctx, &loaded, teacher.ID()))
	require.Len(t, loaded.Students, 2)
	assert.Equal(t, "Kim", loaded.Students[0].Name)

	var student ormtest.Student
	require.NoError(t, f.ops.FindEager(ctx, &student, lee.ID()))
	require.Len(t, student.Teachers, 1)
	assert.Equal(t, "Moss", student.Teachers[0].Name)
}

func TestFindEager_SymmetricSelfReference(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b := &ormtest.Person{Name: "B"}
	require.NoError(t, f.ops.Save(ctx, b))
	a := &ormtest.Person{Name: "A", Friends: []*ormtest.Person{b}}
	require.NoError(t, f.ops.Save(ctx, a))

	people, err := f.ops.FindAllEager(ctx, f.def(t, "Person"))
	require.NoError(t, err)
	require.Len(t, people, 2)

	byName := make(map[string]*ormtest.Person)
	for _, p := range people {
		byName[p.(*ormtest.Person).Name] = p.(*ormtest.Person)
	}
	require.Len(t, byName["A"].Friends, 1)
	assert.Equal(t, "B", byName["A"].Friends[0].Name)
	require.Len(t, byName["B"].Friends, 1, "the link is seen from both sides")
	assert.Equal(t, "A", byName["B"].Friends[0].Name)
}

func TestLoadAssociations_SkipsUnpersisted(t *testing.T) {
	f := setup(t)

	album := &ormtest.Album{Title: "Draft"}
	require.NoError(t, f.ops.LoadAssociations(context.Background(), f.db, []model.Entity{album}))
	assert.Nil(t, album.Songs)
}
