// Package descriptor parses a Nexus Mods collection.json into the domain
// model consumed by the rest of the pipeline.
package descriptor

import (
	"encoding/json"
	"fmt"
	"strings"

	"nexusbridge/internal/domain"
)

type rawCollection struct {
	Info struct {
		Name       string `json:"name"`
		Author     string `json:"author"`
		Description string `json:"description"`
		DomainName string `json:"domainName"`
	} `json:"info"`
	Mods []rawMod `json:"mods"`
	ModRules []struct {
		Type   string `json:"type"`
		Source struct {
			FileMD5        string `json:"fileMD5"`
			LogicalFileName string `json:"logicalFileName"`
		} `json:"source"`
		Reference struct {
			FileMD5        string `json:"fileMD5"`
			LogicalFileName string `json:"logicalFileName"`
		} `json:"reference"`
	} `json:"modRules"`
	Plugins     []rawPlugin `json:"plugins"`
	PluginRules *struct {
		Plugins []struct {
			Name  string   `json:"name"`
			After []string `json:"after"`
		} `json:"plugins"`
	} `json:"pluginRules"`
}

type rawMod struct {
	Name   string `json:"name"`
	Phase  int    `json:"phase"`
	Source struct {
		ModID           int    `json:"modId"`
		FileID          int    `json:"fileId"`
		FileSize        int64  `json:"fileSize"`
		MD5             string `json:"md5"`
		LogicalFilename string `json:"logicalFilename"`
		Type            string `json:"type"`
		URL             string `json:"url"`
	} `json:"source"`
	Choices json.RawMessage `json:"choices"`
	Hashes  []struct {
		Path string `json:"path"`
	} `json:"hashes"`
	Optional bool `json:"optional"`
}

type rawPlugin struct {
	Name    string `json:"name"`
	Enabled *bool  `json:"enabled"`
}

// Parse decodes raw collection.json bytes into a domain.Collection.
// Unknown fields are ignored; missing optional arrays (modRules, plugins,
// pluginRules) are tolerated and simply produce empty slices.
func Parse(data []byte) (*domain.Collection, error) {
	var raw rawCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDescriptor, err)
	}

	gameDomain := raw.Info.DomainName
	if gameDomain == "" {
		gameDomain = "skyrimspecialedition"
	}

	col := &domain.Collection{
		Name:        firstNonEmpty(raw.Info.Name, "Unknown Collection"),
		Author:      firstNonEmpty(raw.Info.Author, "Unknown"),
		Description: raw.Info.Description,
		GameDomain:  gameDomain,
	}

	for _, m := range raw.Mods {
		mod := domain.Mod{
			Name:            m.Name,
			ModID:           m.Source.ModID,
			FileID:          m.Source.FileID,
			FileSize:        m.Source.FileSize,
			MD5:             m.Source.MD5,
			LogicalFilename: m.Source.LogicalFilename,
			GameDomain:      gameDomain,
			Source:          firstNonEmpty(m.Source.Type, "nexus"),
			URL:             m.Source.URL,
			Optional:        m.Optional,
			Phase:           m.Phase,
			ChoicesRaw:      m.Choices,
		}
		for _, h := range m.Hashes {
			if h.Path == "" {
				continue
			}
			mod.ExpectedPaths = append(mod.ExpectedPaths, strings.ReplaceAll(h.Path, "\\", "/"))
		}
		col.Mods = append(col.Mods, mod)
	}

	for _, r := range raw.ModRules {
		col.ModRules = append(col.ModRules, domain.ModRule{
			Type:                 r.Type,
			SourceMD5:            r.Source.FileMD5,
			SourceLogicalName:    r.Source.LogicalFileName,
			ReferenceMD5:         r.Reference.FileMD5,
			ReferenceLogicalName: r.Reference.LogicalFileName,
		})
	}

	for _, p := range raw.Plugins {
		enabled := true
		if p.Enabled != nil {
			enabled = *p.Enabled
		}
		col.Plugins = append(col.Plugins, domain.Plugin{Name: p.Name, Enabled: enabled})
	}

	if raw.PluginRules != nil {
		for _, pr := range raw.PluginRules.Plugins {
			col.PluginRules = append(col.PluginRules, domain.PluginRule{Name: pr.Name, After: pr.After})
		}
	}

	return col, nil
}

func firstNonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
