package main

import (
	"context"
	"fmt"

	"howett.net/jigsaw"
	"howett.net/jigsaw/forms"
	"howett.net/jigsaw/store"
)

const app = "tracker"

var (
	projectModel = &store.Model{
		Name:   "project",
		App:    app,
		Fields: []string{"slug", "name", "description"},
		URL: func(r *store.Record) string {
			return fmt.Sprintf("/projects/%s/", r.String("slug"))
		},
	}
	milestoneModel = &store.Model{
		Name:   "milestone",
		App:    app,
		Fields: []string{"project", "title", "due"},
	}
	bugModel = &store.Model{
		Name:   "bug",
		App:    app,
		Fields: []string{"project", "milestone", "title", "status", "body"},
		URL: func(r *store.Record) string {
			return fmt.Sprintf("/bugs/%v/", r.PK())
		},
	}
)

var (
	projectFields = []forms.Field{
		{Name: "slug", Required: true, MaxLength: 32},
		{Name: "name", Required: true, MaxLength: 80},
		{Name: "description", Kind: forms.Text},
	}
	milestoneFields = []forms.Field{
		{Name: "title", Required: true, MaxLength: 80},
		{Name: "due", Label: "Due date", MaxLength: 10},
	}
	bugFields = []forms.Field{
		{Name: "project", Kind: forms.Int, Required: true},
		{Name: "milestone", Kind: forms.Int},
		{Name: "title", Required: true, MaxLength: 120},
		{Name: "status", Required: true, MaxLength: 16},
		{Name: "body", Label: "Description", Kind: forms.Text},
	}
)

// recordStore is satisfied by both stock stores.
type recordStore interface {
	store.Saver
	Insert(ctx context.Context, records ...*store.Record) error
	Objects(m *store.Model) jigsaw.QuerySet
}

var schemas = map[string][]string{
	"sqlite": {
		`CREATE TABLE IF NOT EXISTS project (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS milestone (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project INTEGER NOT NULL REFERENCES project(id),
			title TEXT NOT NULL,
			due TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS bug (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project INTEGER NOT NULL REFERENCES project(id),
			milestone INTEGER REFERENCES milestone(id),
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			body TEXT
		)`,
	},
	"postgres": {
		`CREATE TABLE IF NOT EXISTS project (
			id SERIAL PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS milestone (
			id SERIAL PRIMARY KEY,
			project INTEGER NOT NULL REFERENCES project(id),
			title TEXT NOT NULL,
			due TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS bug (
			id SERIAL PRIMARY KEY,
			project INTEGER NOT NULL REFERENCES project(id),
			milestone INTEGER REFERENCES milestone(id),
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			body TEXT
		)`,
	},
}

// seed fills an empty store with a demo project.
func seed(ctx context.Context, s recordStore) error {
	n, err := s.Objects(projectModel).Count(ctx)
	if err != nil || n > 0 {
		return err
	}

	p := projectModel.New(map[string]interface{}{
		"slug":        "jigsaw",
		"name":        "Jigsaw",
		"description": "Composite views, one **piece** at a time.",
	})
	if err := s.Save(ctx, p); err != nil {
		return err
	}

	m := milestoneModel.New(map[string]interface{}{"project": p.PK(), "title": "1.0", "due": "2026-12-01"})
	if err := s.Save(ctx, m); err != nil {
		return err
	}

	var bugs []*store.Record
	for i, title := range []string{
		"Pinned lists ignore the page size",
		"Inline formsets lose their prefix",
		"Error pages leak stack traces",
		"Template reload races with rendering",
	} {
		status := "open"
		if i%2 == 1 {
			status = "fixed"
		}
		bugs = append(bugs, bugModel.New(map[string]interface{}{
			"project":   p.PK(),
			"milestone": m.PK(),
			"title":     title,
			"status":    status,
		}))
	}
	return s.Insert(ctx, bugs...)
}
