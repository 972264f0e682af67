package main

import (
	"fmt"

	"howett.net/jigsaw"
	"howett.net/jigsaw/forms"
	"howett.net/jigsaw/pieces"
	"howett.net/jigsaw/store"
)

// tracker holds the view classes of the bug tracker.
type tracker struct {
	store   recordStore
	flashes *flashes

	Project     *jigsaw.Class
	ProjectPage *jigsaw.Class
	Milestones  *jigsaw.Class
	Bug         *jigsaw.Class
}

// trackerDecl lays out the pieces every tracker page starts with.
type trackerDecl struct {
	Messages *jigsaw.Template
}

func newTracker(s recordStore, f *flashes, pageSize int) (*tracker, error) {
	t := &tracker{store: s, flashes: f}

	base, err := jigsaw.NewClassFromStruct("tracker", &trackerDecl{
		Messages: jigsaw.Declare(messages),
	})
	if err != nil {
		return nil, err
	}

	milestones := &pieces.Inline{
		Name:     "milestones",
		FKField:  "project",
		QuerySet: s.Objects(milestoneModel),
		Formset:  forms.ModelFormsetFactory(milestoneModel, s, milestoneFields, forms.Extra(2)),
	}

	project := &pieces.Object{
		QuerySet:   s.Objects(projectModel),
		SlugField:  "slug",
		PaginateBy: pageSize,
		Form:       forms.ModelFormFactory(projectModel, s, projectFields...),
		Inlines:    []*pieces.Inline{milestones},
		Valid: func(p *pieces.ObjectPiece, form jigsaw.Form) (jigsaw.Result, error) {
			res, err := p.FormValid(form)
			return t.flashes.After(res, "Project saved."), err
		},
	}

	t.Project, err = base.Extend("project",
		jigsaw.Slot("project", jigsaw.Declare(project)),
	)
	if err != nil {
		return nil, err
	}

	// A project's page lists its bugs below it.
	t.ProjectPage, err = t.Project.Extend("project_page",
		jigsaw.Slot("bug", jigsaw.Declare(&pieces.Object{
			QuerySetFunc: bugsOf(s),
			FilterSet:    &pieces.FilterSet{Fields: []string{"status"}},
			PaginateBy:   pageSize,
		}, jigsaw.WithMode(jigsaw.ModeList))),
		jigsaw.TemplateName("tracker/project_page.html"),
		jigsaw.Methods("GET", "HEAD"),
	)
	if err != nil {
		return nil, err
	}

	t.Milestones, err = base.Extend("milestones",
		jigsaw.Slot("project", jigsaw.Declare(&pieces.Object{
			QuerySet:  s.Objects(projectModel),
			SlugField: "slug",
		}, jigsaw.WithMode(jigsaw.ModeDetail))),
		jigsaw.Slot("milestones", jigsaw.Declare(&pieces.Inline{
			Name:     "milestones",
			FKField:  "project",
			QuerySet: s.Objects(milestoneModel),
			Formset:  forms.ModelFormsetFactory(milestoneModel, s, milestoneFields, forms.Extra(3)),
			Root:     "project",
		}, jigsaw.WithTemplateName("tracker/milestone_formset"))),
	)
	if err != nil {
		return nil, err
	}

	t.Bug, err = base.Extend("bug",
		jigsaw.Slot("bug", jigsaw.Declare(&pieces.Object{
			QuerySet:   s.Objects(bugModel),
			Filters:    []string{"status", "project"},
			PaginateBy: pageSize,
			Form:       forms.ModelFormFactory(bugModel, s, bugFields...),
			Initial:    map[string]interface{}{"status": "open"},
			SuccessURL: "/bugs/{{.id}}/",
			Valid: func(p *pieces.ObjectPiece, form jigsaw.Form) (jigsaw.Result, error) {
				res, err := p.FormValid(form)
				return t.flashes.After(res, "Bug saved."), err
			},
		})),
	)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// bugsOf scopes bugs to the project an earlier piece looked up.
func bugsOf(s recordStore) func(*jigsaw.Context, *jigsaw.Request) (jigsaw.QuerySet, error) {
	return func(ctx *jigsaw.Context, req *jigsaw.Request) (jigsaw.QuerySet, error) {
		project, ok := ctx.Get(jigsaw.K("project")).(*store.Record)
		if !ok {
			return nil, fmt.Errorf("bug list needs a project")
		}
		return s.Objects(bugModel).Filter("project", project.PK()), nil
	}
}

// register adds every class to r.
func (t *tracker) register(r *jigsaw.Registry) error {
	for _, c := range []*jigsaw.Class{t.Project, t.ProjectPage, t.Milestones, t.Bug} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
