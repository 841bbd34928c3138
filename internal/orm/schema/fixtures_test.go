package schema

import (
	"time"

	"github.com/litemap/litemap/internal/orm/model"
)

type person struct {
	model.Record
	Name    string
	Age     int
	Born    time.Time
	Friends []*person
}

type teacher struct {
	model.Record
	Name     string
	Students []*student
}

type student struct {
	model.Record
	Name     string
	Teachers []*teacher
}

type husband struct {
	model.Record
	Wife *wife
}

type wife struct {
	model.Record
	Husband *husband
}

type album struct {
	model.Record
	Title string
	Songs []*song
}

type song struct {
	model.Record
	Title string
	Album *album
}

func personDef() *model.Definition {
	return model.Define[person]("Person",
		model.Column("name", func(p *person) string { return p.Name }, func(p *person, v string) { p.Name = v }, model.Unique()),
		model.Column("age", func(p *person) int { return p.Age }, func(p *person, v int) { p.Age = v }, model.NotNull(), model.Default("0")),
		model.Column("born", func(p *person) time.Time { return p.Born }, func(p *person, v time.Time) { p.Born = v }),
		model.ToMany("friends", "Person", func(p *person) []*person { return p.Friends }, func(p *person, v []*person) { p.Friends = v }),
	)
}

func teacherDefs() []*model.Definition {
	return []*model.Definition{
		model.Define[teacher]("Teacher",
			model.Column("name", func(t *teacher) string { return t.Name }, func(t *teacher, v string) { t.Name = v }),
			model.ToMany("students", "Student", func(t *teacher) []*student { return t.Students }, func(t *teacher, v []*student) { t.Students = v }),
		),
		model.Define[student]("Student",
			model.Column("name", func(s *student) string { return s.Name }, func(s *student, v string) { s.Name = v }),
			model.ToMany("teachers", "Teacher", func(s *student) []*teacher { return s.Teachers }, func(s *student, v []*teacher) { s.Teachers = v }),
		),
	}
}

func marriageDefs() []*model.Definition {
	return []*model.Definition{
		model.Define[wife]("Wife",
			model.ToOne("husband", "Husband", func(w *wife) *husband { return w.Husband }, func(w *wife, v *husband) { w.Husband = v }),
		),
		model.Define[husband]("Husband",
			model.ToOne("wife", "Wife", func(h *husband) *wife { return h.Wife }, func(h *husband, v *wife) { h.Wife = v }),
		),
	}
}

func albumDefs() []*model.Definition {
	return []*model.Definition{
		model.Define[album]("Album",
			model.Column("title", func(a *album) string { return a.Title }, func(a *album, v string) { a.Title = v }),
			model.ToMany("songs", "Song", func(a *album) []*song { return a.Songs }, func(a *album, v []*song) { a.Songs = v }),
		),
		model.Define[song]("Song",
			model.Column("title", func(s *song) string { return s.Title }, func(s *song, v string) { s.Title = v }),
			model.ToOne("album", "Album", func(s *song) *album { return s.Album }, func(s *song, v *album) { s.Album = v }),
		),
	}
}
