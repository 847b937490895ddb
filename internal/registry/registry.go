// Package registry tracks the roster of subjects and their progress records.
package registry

import (
	"github.com/verte-zerg/gymtrack/internal/model"
)

// Subject is one roster member known to the registry.
type Subject struct {
	Entry    model.RosterEntry
	Active   bool
	Config   model.SubjectConfig
	progress *model.SubjectProgress
}

// Registry holds subjects keyed by id. Removing a subject from the roster
// only deactivates it; its progress survives until ResetAll.
type Registry struct {
	activity model.Activity
	order    []string
	subjects map[string]*Subject
}

// New returns an empty registry for an activity.
func New(activity model.Activity) *Registry {
	return &Registry{
		activity: activity,
		subjects: map[string]*Subject{},
	}
}

// Activity returns the activity the registry was built for.
func (r *Registry) Activity() model.Activity {
	return r.activity
}

// Sync applies a roster refresh. New subjects get the activity defaults,
// known subjects keep their config and progress, missing ones are deactivated.
func (r *Registry) Sync(entries []model.RosterEntry) {
	seen := make(map[string]struct{}, len(entries))
	order := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.SubjectID == "" {
			continue
		}
		if _, dup := seen[entry.SubjectID]; dup {
			continue
		}
		seen[entry.SubjectID] = struct{}{}
		order = append(order, entry.SubjectID)

		sub, ok := r.subjects[entry.SubjectID]
		if !ok {
			sub = &Subject{Config: r.activity.DefaultConfig(entry.SubjectID)}
			r.subjects[entry.SubjectID] = sub
		}
		sub.Entry = entry
		sub.Active = true
	}
	for id, sub := range r.subjects {
		if _, ok := seen[id]; !ok {
			sub.Active = false
		}
	}
	r.order = order
}

// Active returns the active subject ids in roster order.
func (r *Registry) Active() []string {
	return append([]string(nil), r.order...)
}

// Lookup returns an active subject.
func (r *Registry) Lookup(id string) (*Subject, bool) {
	sub, ok := r.subjects[id]
	if !ok || !sub.Active {
		return nil, false
	}
	return sub, true
}

// Progress returns the progress of an active subject, creating it on first use.
func (r *Registry) Progress(id string) (*model.SubjectProgress, bool) {
	sub, ok := r.Lookup(id)
	if !ok {
		return nil, false
	}
	if sub.progress == nil {
		sub.progress = model.NewSubjectProgress(id)
	}
	return sub.progress, true
}

// PeekProgress returns existing progress of any known subject without
// creating it.
func (r *Registry) PeekProgress(id string) (*model.SubjectProgress, bool) {
	sub, ok := r.subjects[id]
	if !ok || sub.progress == nil {
		return nil, false
	}
	return sub.progress, true
}

// Config returns the config of an active subject.
func (r *Registry) Config(id string) (model.SubjectConfig, bool) {
	sub, ok := r.Lookup(id)
	if !ok {
		return model.SubjectConfig{}, false
	}
	return sub.Config, true
}

// SetConfig validates and replaces a subject config. Recorded checkpoints are
// kept as they are.
func (r *Registry) SetConfig(cfg model.SubjectConfig) error {
	if err := ValidateConfig(r.activity.Kind, cfg); err != nil {
		return err
	}
	sub, ok := r.subjects[cfg.SubjectID]
	if !ok {
		return ErrUnknownSubject
	}
	sub.Config = cfg
	return nil
}

// ResetProgress reinitializes one subject's progress.
func (r *Registry) ResetProgress(id string) bool {
	sub, ok := r.subjects[id]
	if !ok {
		return false
	}
	sub.progress = model.NewSubjectProgress(id)
	return true
}

// ResetAll drops every progress record, active or not.
func (r *Registry) ResetAll() {
	for _, sub := range r.subjects {
		sub.progress = nil
	}
}

// Snapshot returns copies of every progress record and config, including
// inactive subjects.
func (r *Registry) Snapshot() (map[string]*model.SubjectProgress, map[string]model.SubjectConfig) {
	progress := make(map[string]*model.SubjectProgress, len(r.subjects))
	configs := make(map[string]model.SubjectConfig, len(r.subjects))
	for id, sub := range r.subjects {
		configs[id] = sub.Config
		if sub.progress != nil {
			progress[id] = sub.progress.Clone()
		}
	}
	return progress, configs
}

// Restore loads progress and configs for subjects. Unknown subjects are kept
// inactive until a roster sync names them.
func (r *Registry) Restore(progress map[string]*model.SubjectProgress, configs map[string]model.SubjectConfig) {
	for id, cfg := range configs {
		sub, ok := r.subjects[id]
		if !ok {
			sub = &Subject{Entry: model.RosterEntry{SubjectID: id}}
			r.subjects[id] = sub
		}
		sub.Config = cfg
	}
	for id, p := range progress {
		sub, ok := r.subjects[id]
		if !ok {
			sub = &Subject{Entry: model.RosterEntry{SubjectID: id}, Config: r.activity.DefaultConfig(id)}
			r.subjects[id] = sub
		}
		sub.progress = p.Clone()
	}
}
