package descriptor

import (
	"encoding/json"

	"nexusbridge/internal/domain"
)

type rawChoices struct {
	Options []struct {
		Name   string `json:"name"`
		Groups []struct {
			Name    string `json:"name"`
			Choices []struct {
				Name string `json:"name"`
				Idx  int    `json:"idx"`
			} `json:"choices"`
		} `json:"groups"`
	} `json:"options"`
}

// ParseChoices decodes a mod's raw "choices" JSON blob into a domain.FomodChoices.
// A nil or empty blob yields a zero-value FomodChoices, not an error — most
// mods in a collection carry no FOMOD choices at all.
func ParseChoices(raw json.RawMessage) (domain.FomodChoices, error) {
	var out domain.FomodChoices
	if len(raw) == 0 {
		return out, nil
	}
	var rc rawChoices
	if err := json.Unmarshal(raw, &rc); err != nil {
		return out, err
	}
	for _, s := range rc.Options {
		step := domain.FomodStep{Name: s.Name}
		for _, g := range s.Groups {
			group := domain.FomodGroup{Name: g.Name}
			for _, c := range g.Choices {
				group.Options = append(group.Options, c.Name)
			}
			step.Groups = append(step.Groups, group)
		}
		out.Steps = append(out.Steps, step)
	}
	return out, nil
}
