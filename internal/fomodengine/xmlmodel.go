package fomodengine

import "encoding/xml"

// FileEntry is a <file> or <folder> element inside a files block.
type FileEntry struct {
	Source      string `xml:"source,attr"`
	Destination string `xml:"destination,attr"`
}

// FilesBlock groups <file> and <folder> children, used both as a standalone
// <files> wrapper and as requiredInstallFiles' direct content.
type FilesBlock struct {
	Files   []FileEntry `xml:"file"`
	Folders []FileEntry `xml:"folder"`
}

// Flag is a <flag name="...">value</flag> entry inside <conditionFlags>.
type Flag struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// ConditionFlags is a plugin's <conditionFlags> block.
type ConditionFlags struct {
	Flags []Flag `xml:"flag"`
}

// Plugin is a single selectable option inside a <group>'s <plugins>.
type Plugin struct {
	Name            string          `xml:"name,attr"`
	ConditionFlags  ConditionFlags  `xml:"conditionFlags"`
	Files           *FilesBlock     `xml:"files"`
	DirectFiles     []FileEntry     `xml:"file"`
	DirectFolders   []FileEntry     `xml:"folder"`
}

// PluginsBlock is a group's <plugins> container.
type PluginsBlock struct {
	Plugin []Plugin `xml:"plugin"`
}

// Group is an <optionalFileGroups>/<group>.
type Group struct {
	Name    string       `xml:"name,attr"`
	Plugins PluginsBlock `xml:"plugins"`
}

// OptionalFileGroups is an installStep's <optionalFileGroups>.
type OptionalFileGroups struct {
	Group []Group `xml:"group"`
}

// InstallStep is a single <installStep>.
type InstallStep struct {
	Name               string             `xml:"name,attr"`
	OptionalFileGroups OptionalFileGroups `xml:"optionalFileGroups"`
}

// InstallSteps is the <config><installSteps> container.
type InstallSteps struct {
	InstallStep []InstallStep `xml:"installStep"`
}

// FlagDependency is a <flagDependency flag="x" value="y"/>.
type FlagDependency struct {
	Flag  string `xml:"flag,attr"`
	Value string `xml:"value,attr"`
}

// Dependencies is an (optionally nested) <dependencies operator="And|Or">.
type Dependencies struct {
	Operator       string           `xml:"operator,attr"`
	FlagDependency []FlagDependency `xml:"flagDependency"`
	Nested         []Dependencies   `xml:"dependencies"`
}

// Pattern is a <conditionalFileInstalls><patterns><pattern>.
type Pattern struct {
	Dependencies *Dependencies `xml:"dependencies"`
	Files        *FilesBlock   `xml:"files"`
}

// Patterns is the <patterns> wrapper inside <conditionalFileInstalls>.
type Patterns struct {
	Pattern []Pattern `xml:"pattern"`
}

// ConditionalFileInstalls is the <config><conditionalFileInstalls> block.
type ConditionalFileInstalls struct {
	Patterns Patterns `xml:"patterns"`
}

// Config is the root <config> element of a ModuleConfig.xml.
type Config struct {
	XMLName                 xml.Name                 `xml:"config"`
	ModuleName              string                   `xml:"moduleName"`
	RequiredInstallFiles    *FilesBlock              `xml:"requiredInstallFiles"`
	InstallSteps            *InstallSteps            `xml:"installSteps"`
	ConditionalFileInstalls *ConditionalFileInstalls `xml:"conditionalFileInstalls"`
}
