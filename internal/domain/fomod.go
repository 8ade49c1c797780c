package domain

import "strings"

// FomodChoices records which options a user (or the collection author) picked
// for a FOMOD installer's steps and groups. The composite key is
// (stepName, groupName), not groupName alone — two different steps are free
// to reuse a group name such as "Main" or "Options".
type FomodChoices struct {
	// Steps preserves collection.json's declaration order; each entry's
	// Groups preserves group declaration order and each group's Options
	// preserves option declaration order.
	Steps []FomodStep
}

// FomodStep is one installStep's recorded choices.
type FomodStep struct {
	Name   string
	Groups []FomodGroup
}

// FomodGroup is one optionalFileGroup's recorded choices.
type FomodGroup struct {
	Name    string
	Options []string // selected option (plugin) names
}

// IsSelected reports whether optionName was selected under (stepName, groupName).
// Matching is case-insensitive, mirroring the original installer's iequals comparisons.
func (f FomodChoices) IsSelected(stepName, groupName, optionName string) bool {
	for _, s := range f.Steps {
		if !strings.EqualFold(s.Name, stepName) {
			continue
		}
		for _, g := range s.Groups {
			if !strings.EqualFold(g.Name, groupName) {
				continue
			}
			for _, o := range g.Options {
				if strings.EqualFold(o, optionName) {
					return true
				}
			}
		}
	}
	return false
}

// GetSelectedOptions returns the selected option names for (stepName, groupName),
// or nil if that step/group pair was never recorded.
func (f FomodChoices) GetSelectedOptions(stepName, groupName string) []string {
	for _, s := range f.Steps {
		if !strings.EqualFold(s.Name, stepName) {
			continue
		}
		for _, g := range s.Groups {
			if strings.EqualFold(g.Name, groupName) {
				return g.Options
			}
		}
	}
	return nil
}
