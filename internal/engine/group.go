package engine

import (
	"strings"

	"github.com/verte-zerg/gymtrack/internal/model"
)

// Groups maps subjects to the members of their group. A subject without a
// group label is its own group of one.
type Groups struct {
	labelOf map[string]string
	members map[string][]string
}

// BuildGroups derives groups from roster labels, keeping roster order.
func BuildGroups(entries []model.RosterEntry) Groups {
	g := Groups{
		labelOf: map[string]string{},
		members: map[string][]string{},
	}
	for _, e := range entries {
		label := strings.TrimSpace(e.GroupLabel)
		if e.SubjectID == "" || label == "" {
			continue
		}
		if _, dup := g.labelOf[e.SubjectID]; dup {
			continue
		}
		g.labelOf[e.SubjectID] = label
		g.members[label] = append(g.members[label], e.SubjectID)
	}
	return g
}

// Members returns the anchor's group, anchor included.
func (g Groups) Members(anchor string) []string {
	label, ok := g.labelOf[anchor]
	if !ok {
		return []string{anchor}
	}
	return append([]string(nil), g.members[label]...)
}

// Label returns the group label of a subject.
func (g Groups) Label(id string) (string, bool) {
	label, ok := g.labelOf[id]
	return label, ok
}
