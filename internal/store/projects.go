package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

func userKey(user string) string { return "projects:" + user }

func projectKey(id string) string { return "project:" + id }

// Metadata is one entry of a user's project list.
type Metadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
	Thumb     string    `json:"thumb,omitempty"`
}

// SaveRequest is the body of a project save.
type SaveRequest struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Thumb string          `json:"thumb,omitempty"`
	State json.RawMessage `json:"state"`
}

// Validate checks that id, name and state are present.
func (r SaveRequest) Validate() error {
	var missing []string
	if r.ID == "" {
		missing = append(missing, "id")
	}
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if len(r.State) == 0 || string(r.State) == "null" {
		missing = append(missing, "state")
	}
	if len(missing) > 0 {
		return errors.Errorf("incomplete project data: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Projects keeps project documents under "project:{id}" and each user's
// metadata list, newest first, under "projects:{user}".
type Projects struct {
	kv  KV
	mu  sync.Mutex
	now func() time.Time
}

// NewProjects creates a repository over kv.
func NewProjects(kv KV) *Projects {
	return &Projects{kv: kv, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the user's project list; an unknown user has none.
func (p *Projects) List(ctx context.Context, user string) ([]Metadata, error) {
	data, err := p.kv.Get(ctx, userKey(user))
	if errors.Is(err, ErrNotFound) {
		return []Metadata{}, nil
	}
	if err != nil {
		return nil, err
	}
	var list []Metadata
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, errors.Wrapf(err, "decode project list for %q", user)
	}
	if list == nil {
		list = []Metadata{}
	}
	return list, nil
}

// Save stores the project state and records it in the user's list. An
// existing entry is updated in place; a new one goes to the front.
func (p *Projects) Save(ctx context.Context, user string, req SaveRequest) (Metadata, error) {
	if err := req.Validate(); err != nil {
		return Metadata{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	list, err := p.List(ctx, user)
	if err != nil {
		return Metadata{}, err
	}
	meta := Metadata{ID: req.ID, Name: req.Name, UpdatedAt: p.now(), Thumb: req.Thumb}
	found := false
	for i := range list {
		if list[i].ID == req.ID {
			list[i] = meta
			found = true
			break
		}
	}
	if !found {
		list = append([]Metadata{meta}, list...)
	}

	if err := p.kv.Put(ctx, projectKey(req.ID), req.State); err != nil {
		return Metadata{}, err
	}
	if err := p.putList(ctx, user, list); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// Load returns the stored state of a project.
func (p *Projects) Load(ctx context.Context, id string) (json.RawMessage, error) {
	data, err := p.kv.Get(ctx, projectKey(id))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// Delete removes the project and its entry in the user's list.
func (p *Projects) Delete(ctx context.Context, user, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	list, err := p.List(ctx, user)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, m := range list {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if err := p.kv.Delete(ctx, projectKey(id)); err != nil {
		return err
	}
	return p.putList(ctx, user, kept)
}

func (p *Projects) putList(ctx context.Context, user string, list []Metadata) error {
	data, err := json.Marshal(list)
	if err != nil {
		return errors.Wrap(err, "encode project list")
	}
	return p.kv.Put(ctx, userKey(user), data)
}
