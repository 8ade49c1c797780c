// Package domain holds the data model shared by every stage of the
// collection install pipeline: descriptor parsing, download, extraction,
// FOMOD resolution and the two sort passes.
package domain

// Collection is the parsed form of a Nexus Mods collection.json.
type Collection struct {
	Name        string
	Author      string
	Description string
	GameDomain  string
	Mods        []Mod
	ModRules    []ModRule
	Plugins     []Plugin
	PluginRules []PluginRule
}

// Mod is one entry in a collection's mods[] array.
type Mod struct {
	Name            string
	Version         string
	ModID           int
	FileID          int
	GameDomain      string
	LogicalFilename string // Nexus "logical" display filename, used for archive reuse matching
	FileSize        int64
	MD5             string
	Source          string // "nexus", "direct", "manual" (nxm)
	URL             string // present when Source == "direct"
	Optional        bool
	ChoicesRaw      []byte   // raw "choices" JSON blob, parsed lazily into FomodChoices
	ExpectedPaths   []string // hashes[].path entries, used by the hash-based FOMOD fallback
	Phase           int

	// FolderName is filled in during install once the mod's destination
	// folder name has been computed; zero value until then.
	FolderName string
}

// Key uniquely identifies a mod within a collection for rule lookups.
func (m Mod) Key() string { return m.Name }

// ModRule expresses a before/after ordering constraint between two mods,
// identified by MD5 or logical filename rather than by folder name — the
// collection format doesn't know folder names until install time.
type ModRule struct {
	Type                 string // "before" or "after"
	SourceMD5            string
	SourceLogicalName    string
	ReferenceMD5         string
	ReferenceLogicalName string
}

// Plugin is an entry in a collection's plugins[] array.
type Plugin struct {
	Name    string // plugin filename, e.g. "MyMod.esp"
	Enabled bool
}

// PluginRule pins a plugin to load after a set of other plugins.
type PluginRule struct {
	Name  string
	After []string
}
