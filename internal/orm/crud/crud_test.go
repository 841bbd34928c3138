package crud

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litemap/litemap/internal/orm/codegen"
	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/ormtest"
	"github.com/litemap/litemap/internal/orm/schema"
	"github.com/litemap/litemap/internal/orm/transaction"
)

type fixture struct {
	ops     *Operations
	db      *sql.DB
	catalog *model.Catalog
}

func setup(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	defs := ormtest.All()
	s, err := schema.NewBuilder(schema.CaseLower).Build(defs)
	require.NoError(t, err)
	catalog, err := model.NewCatalog(defs...)
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	gen := codegen.NewDDLGenerator()
	for _, table := range s.Tables() {
		stmt, err := gen.GenerateCreateTable(table)
		require.NoError(t, err)
		_, err = db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	return &fixture{
		ops:     NewOperations(s, catalog, transaction.NewManager(db), opts...),
		db:      db,
		catalog: catalog,
	}
}

func (f *fixture) count(t *testing.T, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(query, args...).Scan(&n))
	return n
}

func (f *fixture) def(t *testing.T, name string) *model.Definition {
	t.Helper()
	def, ok := f.catalog.Lookup(name)
	require.True(t, ok)
	return def
}

func TestSave_ResaveUpdatesInPlace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p := &ormtest.Person{Name: "Tom", Age: 30}
	require.NoError(t, f.ops.Save(ctx, p))
	assert.True(t, p.IsPersisted())
	assert.True(t, p.IsSaved())
	id := p.ID()

	p.Age = 31
	require.NoError(t, f.ops.Save(ctx, p))
	assert.Equal(t, id, p.ID())
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM person`))
	assert.Equal(t, 31, f.count(t, `SELECT age FROM person WHERE id = ?`, id))

	p.ClearSavedState()
	require.NoError(t, f.ops.Save(ctx, p))
	assert.NotEqual(t, id, p.ID())
	assert.Equal(t, 2, f.count(t, `SELECT COUNT(*) FROM person`))
}

func TestSave_OneToOne(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("holder saves its prerequisite first", func(t *testing.T) {
		wife := &ormtest.Wife{Name: "Ann"}
		husband := &ormtest.Husband{Name: "Bob", Wife: wife}

		require.NoError(t, f.ops.Save(ctx, husband))

		assert.True(t, wife.IsPersisted())
		assert.True(t, wife.IsSaved())
		assert.Same(t, husband, wife.Husband)
		assert.Equal(t, int(wife.ID()), f.count(t, `SELECT wife_id FROM husband WHERE id = ?`, husband.ID()))
	})

	t.Run("non-holder points the holder row back", func(t *testing.T) {
		husband := &ormtest.Husband{Name: "Carl"}
		require.NoError(t, f.ops.Save(ctx, husband))
		assert.Zero(t, f.count(t, `SELECT COUNT(wife_id) FROM husband WHERE id = ?`, husband.ID()))

		wife := &ormtest.Wife{Name: "Dee", Husband: husband}
		require.NoError(t, f.ops.Save(ctx, wife))
		assert.Equal(t, int(wife.ID()), f.count(t, `SELECT wife_id FROM husband WHERE id = ?`, husband.ID()))
		assert.Same(t, wife, husband.Wife)
	})

	t.Run("cycle of unsaved entities", func(t *testing.T) {
		husband := &ormtest.Husband{Name: "Ed"}
		wife := &ormtest.Wife{Name: "Flo", Husband: husband}
		husband.Wife = wife

		require.NoError(t, f.ops.Save(ctx, wife))
		assert.True(t, husband.IsPersisted())
		assert.Equal(t, int(wife.ID()), f.count(t, `SELECT wife_id FROM husband WHERE id = ?`, husband.ID()))
	})
}

func TestSave_ManyToOne(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	album := &ormtest.Album{Title: "Blue"}
	song := &ormtest.Song{Title: "River", Album: album}
	require.NoError(t, f.ops.Save(ctx, song))
	assert.True(t, album.IsPersisted())
	require.Len(t, album.Songs, 1)
	assert.Equal(t, int(album.ID()), f.count(t, `SELECT album_id FROM song WHERE id = ?`, song.ID()))

	loose := &ormtest.Song{Title: "Lake"}
	require.NoError(t, f.ops.Save(ctx, loose))
	album.Songs = append(album.Songs, loose)
	require.NoError(t, f.ops.Save(ctx, album))

	assert.Same(t, album, loose.Album)
	assert.Equal(t, 2, f.count(t, `SELECT COUNT(*) FROM song WHERE album_id = ?`, album.ID()))
}

func TestSave_ManyToManySingleJoinRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := &ormtest.Teacher{Name: "Moss"}
	student := &ormtest.Student{Name: "Kim"}
	teacher.Students = []*ormtest.Student{student}
	student.Teachers = []*ormtest.Teacher{teacher}

	require.NoError(t, f.ops.Save(ctx, teacher))
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM student_teacher`))

	require.NoError(t, f.ops.Save(ctx, student))
	require.NoError(t, f.ops.Save(ctx, teacher))
	require.NoError(t, f.ops.Save(ctx, student))

	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM student_teacher`))
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM student_teacher WHERE teacher_id = ? AND student_id = ?`, teacher.ID(), student.ID()))
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'teacher_student'`))
	assert.Empty(t, teacher.JoinTables(), "buckets are cleared once saved")
}

func TestSave_SelfReferenceGrowsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := &ormtest.Person{Name: "A"}
	b := &ormtest.Person{Name: "B"}
	require.NoError(t, f.ops.Save(ctx, b))

	a.Friends = []*ormtest.Person{b}
	require.NoError(t, f.ops.Save(ctx, a))
	require.NoError(t, f.ops.Save(ctx, a))
	require.NoError(t, f.ops.Save(ctx, b))

	require.Len(t, b.Friends, 1)
	assert.Same(t, a, b.Friends[0])
	assert.Len(t, a.Friends, 1)
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM person_person`))
}

func TestSave_RollbackRestoresEntities(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.ops.Save(ctx, &ormtest.Song{Title: "River"}))

	album := &ormtest.Album{Title: "Red"}
	dup := &ormtest.Song{Title: "River", Album: album}
	err := f.ops.Save(ctx, dup)
	require.Error(t, err)
	assert.True(t, ormerrors.IsStore(err))
	assert.True(t, ormerrors.IsUniqueViolation(err))

	assert.Zero(t, album.ID(), "prerequisite id is reverted")
	assert.False(t, album.IsSaved())
	assert.Zero(t, dup.ID())
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM album`))
}

func TestSave_AccessorFailureWritesNothing(t *testing.T) {
	f := setup(t)

	err := f.ops.Save(context.Background(), &ormtest.Pet{Name: "Rex"})
	require.Error(t, err)
	assert.True(t, ormerrors.IsConfiguration(err))
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM pet`))

	pet := &ormtest.Pet{Name: "Rex", Tag: &ormtest.Tag{Label: "blue"}}
	require.NoError(t, f.ops.Save(context.Background(), pet))
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM pet WHERE label = 'blue'`))
}

func TestSave_UnknownType(t *testing.T) {
	f := setup(t)
	err := f.ops.Save(context.Background(), &model.Record{})
	assert.True(t, ormerrors.IsConfiguration(err))
}

func TestUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, name := range []string{"Ann", "Bob", "Cid"} {
		require.NoError(t, f.ops.Save(ctx, &ormtest.Person{Name: name, Age: 20}))
	}

	t.Run("by id writes every column", func(t *testing.T) {
		n, err := f.ops.UpdateByID(ctx, &ormtest.Person{Name: "Bea", Age: 40}, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM person WHERE id = 2 AND name = 'Bea' AND age = 40`))
	})

	t.Run("by id restricted to columns", func(t *testing.T) {
		n, err := f.ops.UpdateByID(ctx, &ormtest.Person{Age: 50}, 3, "age")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM person WHERE id = 3 AND name = 'Cid' AND age = 50`))
	})

	t.Run("where", func(t *testing.T) {
		n, err := f.ops.UpdateWhere(ctx, &ormtest.Person{Age: 0}, []string{"age"}, "age < ?", 45)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.Equal(t, 2, f.count(t, `SELECT COUNT(*) FROM person WHERE age = 0`))
	})

	t.Run("missing row", func(t *testing.T) {
		n, err := f.ops.UpdateByID(ctx, &ormtest.Person{Name: "Zed"}, 99)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := &ormtest.Teacher{Name: "Moss"}
	student := &ormtest.Student{Name: "Kim", Teachers: []*ormtest.Teacher{teacher}}
	require.NoError(t, f.ops.Save(ctx, teacher))
	require.NoError(t, f.ops.Save(ctx, student))
	require.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM student_teacher`))

	n, err := f.ops.Delete(ctx, teacher)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM student_teacher`))
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM student`))
	assert.False(t, teacher.IsPersisted())
	assert.False(t, teacher.IsSaved())

	n, err = f.ops.Delete(ctx, &ormtest.Teacher{})
	require.NoError(t, err)
	assert.Zero(t, n)

	t.Run("foreign keys are cleared", func(t *testing.T) {
		album := &ormtest.Album{Title: "Blue"}
		song := &ormtest.Song{Title: "River", Album: album}
		require.NoError(t, f.ops.Save(ctx, song))

		n, err := f.ops.DeleteByID(ctx, f.def(t, "Album"), album.ID())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM song WHERE album_id IS NULL`))
	})

	t.Run("self reference removes both columns", func(t *testing.T) {
		a := &ormtest.Person{Name: "A"}
		b := &ormtest.Person{Name: "B", Friends: []*ormtest.Person{a}}
		require.NoError(t, f.ops.Save(ctx, a))
		require.NoError(t, f.ops.Save(ctx, b))
		require.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM person_person`))

		_, err := f.ops.Delete(ctx, a)
		require.NoError(t, err)
		assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM person_person`))
	})

	t.Run("where", func(t *testing.T) {
		for _, name := range []string{"x1", "x2", "y1"} {
			require.NoError(t, f.ops.Save(ctx, &ormtest.Student{Name: name}))
		}
		n, err := f.ops.DeleteWhere(ctx, f.def(t, "Student"), "name LIKE ?", "x%")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = f.ops.DeleteWhere(ctx, f.def(t, "Student"), "")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestFind(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	song := &ormtest.Song{Title: "River", Duration: 3.5}
	require.NoError(t, f.ops.Save(ctx, song))

	var loaded ormtest.Song
	require.NoError(t, f.ops.Find(ctx, &loaded, song.ID()))
	assert.Equal(t, "River", loaded.Title)
	assert.Equal(t, 3.5, loaded.Duration)
	assert.Equal(t, song.ID(), loaded.ID())
	assert.True(t, loaded.IsSaved())

	err := f.ops.Find(ctx, &ormtest.Song{}, 42)
	require.Error(t, err)
	assert.True(t, ormerrors.IsNotFound(err))

	require.NoError(t, f.ops.Save(ctx, &ormtest.Song{Title: "Lake"}))
	all, err := f.ops.FindAll(ctx, f.def(t, "Song"))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Lake", all[1].(*ormtest.Song).Title)

	some, err := f.ops.FindAll(ctx, f.def(t, "Song"), song.ID())
	require.NoError(t, err)
	assert.Len(t, some, 1)
}

func TestNestedCascadeJoinsCallerTransaction(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mgr := transaction.NewManager(f.db)

	keep := &ormtest.Person{Name: "Keep"}
	err := mgr.WithTransaction(ctx, func(ctx context.Context, tx *transaction.Transaction) error {
		if err := f.ops.Save(ctx, keep); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, keep.ID())
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM person`))
}
