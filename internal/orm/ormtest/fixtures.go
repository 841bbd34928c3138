// Package ormtest holds entity types and definitions shared by the ORM package tests.
package ormtest

import (
	"time"

	"github.com/litemap/litemap/internal/orm/model"
)

// Person befriends other people through one symmetric collection
type Person struct {
	model.Record
	Name    string
	Age     int
	Born    time.Time
	Friends []*Person
}

// Teacher and Student form a bidirectional many-to-many
type Teacher struct {
	model.Record
	Name     string
	Students []*Student
}

type Student struct {
	model.Record
	Name     string
	Teachers []*Teacher
}

// Husband and Wife form a bidirectional one-to-one; husband sorts first and holds wife_id
type Husband struct {
	model.Record
	Name string
	Wife *Wife
}

type Wife struct {
	model.Record
	Name    string
	Husband *Husband
}

// Album and Song form a many-to-one; song holds album_id
type Album struct {
	model.Record
	Title string
	Songs []*Song
}

type Song struct {
	model.Record
	Title    string
	Duration float64
	Album    *Album
}

// Tag is embedded by Pet
type Tag struct {
	model.Record
	Label string
}

// Pet reaches its label through an embedded *Tag, which may be nil
type Pet struct {
	model.Record
	*Tag
	Name string
}

// PersonV1 is Person with the columns a first release shipped
func PersonV1() *model.Definition {
	return model.Define[Person]("Person",
		model.Column("name", func(p *Person) string { return p.Name }, func(p *Person, v string) { p.Name = v }),
	)
}

// PersonDef is the current definition of Person
func PersonDef() *model.Definition {
	return model.Define[Person]("Person",
		model.Column("name", func(p *Person) string { return p.Name }, func(p *Person, v string) { p.Name = v }),
		model.Column("age", func(p *Person) int { return p.Age }, func(p *Person, v int) { p.Age = v }, model.NotNull()),
		model.Column("born", func(p *Person) time.Time { return p.Born }, func(p *Person, v time.Time) { p.Born = v }),
		model.ToMany("friends", "Person", func(p *Person) []*Person { return p.Friends }, func(p *Person, v []*Person) { p.Friends = v }),
	)
}

func TeacherDef() *model.Definition {
	return model.Define[Teacher]("Teacher",
		model.Column("name", func(t *Teacher) string { return t.Name }, func(t *Teacher, v string) { t.Name = v }),
		model.ToMany("students", "Student", func(t *Teacher) []*Student { return t.Students }, func(t *Teacher, v []*Student) { t.Students = v }),
	)
}

func StudentDef() *model.Definition {
	return model.Define[Student]("Student",
		model.Column("name", func(s *Student) string { return s.Name }, func(s *Student, v string) { s.Name = v }),
		model.ToMany("teachers", "Teacher", func(s *Student) []*Teacher { return s.Teachers }, func(s *Student, v []*Teacher) { s.Teachers = v }),
	)
}

func HusbandDef() *model.Definition {
	return model.Define[Husband]("Husband",
		model.Column("name", func(h *Husband) string { return h.Name }, func(h *Husband, v string) { h.Name = v }),
		model.ToOne("wife", "Wife", func(h *Husband) *Wife { return h.Wife }, func(h *Husband, v *Wife) { h.Wife = v }),
	)
}

func WifeDef() *model.Definition {
	return model.Define[Wife]("Wife",
		model.Column("name", func(w *Wife) string { return w.Name }, func(w *Wife, v string) { w.Name = v }),
		model.ToOne("husband", "Husband", func(w *Wife) *Husband { return w.Husband }, func(w *Wife, v *Husband) { w.Husband = v }),
	)
}

func AlbumDef() *model.Definition {
	return model.Define[Album]("Album",
		model.Column("title", func(a *Album) string { return a.Title }, func(a *Album, v string) { a.Title = v }, model.Unique()),
		model.ToMany("songs", "Song", func(a *Album) []*Song { return a.Songs }, func(a *Album, v []*Song) { a.Songs = v }),
	)
}

func SongDef() *model.Definition {
	return model.Define[Song]("Song",
		model.Column("title", func(s *Song) string { return s.Title }, func(s *Song, v string) { s.Title = v }, model.NotNull(), model.Unique()),
		model.Column("duration", func(s *Song) float64 { return s.Duration }, func(s *Song, v float64) { s.Duration = v }),
		model.ToOne("album", "Album", func(s *Song) *Album { return s.Album }, func(s *Song, v *Album) { s.Album = v }),
	)
}

func TagDef() *model.Definition {
	return model.Define[Tag]("Tag",
		model.Column("label", func(t *Tag) string { return t.Label }, func(t *Tag, v string) { t.Label = v }),
	)
}

func PetDef(tag *model.Definition) *model.Definition {
	return model.Define[Pet]("Pet",
		model.Embed(tag, func(p *Pet) *Tag { return p.Tag }),
		model.Column("name", func(p *Pet) string { return p.Name }, func(p *Pet, v string) { p.Name = v }),
	)
}

// All returns a fresh set of every fixture definition
func All() []*model.Definition {
	tag := TagDef()
	return []*model.Definition{
		PersonDef(), TeacherDef(), StudentDef(), HusbandDef(), WifeDef(), AlbumDef(), SongDef(), tag, PetDef(tag),
	}
}
