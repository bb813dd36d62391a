package engine

import "slices"

// nameModel tracks the series at name level while operations are queued,
// so every operation is validated against the state its predecessors leave behind
type nameModel struct {
	applied    []string
	unapplied  []string
	hidden     []string
	conflicted string
}

func newNameModel(w *working) *nameModel {
	return &nameModel{
		applied:    slices.Clone(w.applied),
		unapplied:  slices.Clone(w.unapplied),
		hidden:     slices.Clone(w.hidden),
		conflicted: w.conflicted(),
	}
}

func (m *nameModel) partition(name string) Partition {
	switch {
	case slices.Contains(m.applied, name):
		return PartitionApplied
	case slices.Contains(m.unapplied, name):
		return PartitionUnapplied
	case slices.Contains(m.hidden, name):
		return PartitionHidden
	}
	return PartitionNone
}

func (m *nameModel) top() string {
	if len(m.applied) == 0 {
		return ""
	}
	return m.applied[len(m.applied)-1]
}

func (m *nameModel) push(name string) {
	m.unapplied = removeName(m.unapplied, name)
	m.applied = append(m.applied, name)
}

func (m *nameModel) pop(name string) {
	m.applied = removeName(m.applied, name)
	m.unapplied = append([]string{name}, m.unapplied...)
	if m.conflicted == name {
		m.conflicted = ""
	}
}

func (m *nameModel) remove(name string) {
	m.applied = removeName(m.applied, name)
	m.unapplied = removeName(m.unapplied, name)
	m.hidden = removeName(m.hidden, name)
	if m.conflicted == name {
		m.conflicted = ""
	}
}

func (m *nameModel) rename(oldName, newName string) {
	m.applied = replaceName(m.applied, oldName, newName)
	m.unapplied = replaceName(m.unapplied, oldName, newName)
	m.hidden = replaceName(m.hidden, oldName, newName)
}
