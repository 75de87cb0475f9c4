package core

import (
	"context"
	"fmt"

	"github.com/c360studio/soc2scan/detector"
	"github.com/c360studio/soc2scan/model"
	"github.com/c360studio/soc2scan/pathsafety"
)

// CreateProjectRequest is the payload for create_project.
type CreateProjectRequest struct {
	Path      string
	Name      string
	Framework string
}

// CreateProject creates a project rooted at req.Path, returning the
// existing row if one is already registered for that path, per spec.md
// §6's "existing if path matches" result.
func (c *Core) CreateProject(ctx context.Context, req CreateProjectRequest) (*model.Project, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("core: create project: path is required")
	}
	abs, err := pathsafety.EnsureWithin(req.Path, ".")
	if err != nil {
		return nil, fmt.Errorf("core: create project: %w", err)
	}
	if pathsafety.IsSystemRoot(abs) {
		return nil, fmt.Errorf("core: refusing to register system root %q as a project", abs)
	}

	if existing, err := c.store.GetProjectByPath(ctx, abs); err == nil {
		return existing, nil
	}

	name := req.Name
	if name == "" {
		name = abs
	}
	framework := req.Framework
	if framework == "" {
		framework = string(detector.DetectFrameworkAtRoot(abs))
	}

	p := &model.Project{Name: name, Path: abs, Framework: framework}
	if err := c.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("core: create project: %w", err)
	}
	_ = c.audit.ProjectCreated(ctx, p.ID, fmt.Sprintf("registered project at %s", abs))
	return p, nil
}

// GetProjects lists every registered project.
func (c *Core) GetProjects(ctx context.Context) ([]model.Project, error) {
	return c.store.ListProjects(ctx)
}

// DetectFramework inspects path and reports the framework it appears to
// use, without registering a project.
func (c *Core) DetectFramework(ctx context.Context, path string) (detector.Framework, error) {
	abs, err := pathsafety.EnsureWithin(path, ".")
	if err != nil {
		return detector.FrameworkNone, fmt.Errorf("core: detect framework: %w", err)
	}
	return detector.DetectFrameworkAtRoot(abs), nil
}
