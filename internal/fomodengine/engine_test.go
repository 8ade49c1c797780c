package fomodengine_test

import (
	"os"
	"path/filepath"
	"testing"

	"nexusbridge/internal/domain"
	"nexusbridge/internal/fomodengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const moduleConfig = `<?xml version="1.0" encoding="utf-8"?>
<config>
  <moduleName>Test Mod</moduleName>
  <requiredInstallFiles>
    <file source="Core/core.esp" destination="core.esp"/>
  </requiredInstallFiles>
  <installSteps>
    <installStep name="Step 1">
      <optionalFileGroups>
        <group name="Map Style">
          <plugins>
            <plugin name="Vivid">
              <conditionFlags>
                <flag name="MapStyle">Vivid</flag>
              </conditionFlags>
              <files>
                <file source="Vivid/map.esp" destination="map.esp"/>
              </files>
            </plugin>
            <plugin name="Classic">
              <conditionFlags>
                <flag name="MapStyle">Classic</flag>
              </conditionFlags>
              <files>
                <file source="Classic/map.esp" destination="map.esp"/>
              </files>
            </plugin>
          </plugins>
        </group>
      </optionalFileGroups>
    </installStep>
  </installSteps>
  <conditionalFileInstalls>
    <patterns>
      <pattern>
        <dependencies operator="And">
          <flagDependency flag="MapStyle" value="Vivid"/>
        </dependencies>
        <files>
          <file source="Vivid/extra.txt" destination="extra.txt"/>
        </files>
      </pattern>
      <pattern>
        <dependencies operator="And">
          <flagDependency flag="MapStyle" value="Classic"/>
        </dependencies>
        <files>
          <file source="Classic/extra.txt" destination="extra.txt"/>
        </files>
      </pattern>
    </patterns>
  </conditionalFileInstalls>
</config>`

func setupFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "fomod", "ModuleConfig.xml"), moduleConfig)
	mustWrite(t, filepath.Join(root, "Core", "core.esp"), "core")
	mustWrite(t, filepath.Join(root, "Vivid", "map.esp"), "vivid-map")
	mustWrite(t, filepath.Join(root, "Vivid", "extra.txt"), "vivid-extra")
	mustWrite(t, filepath.Join(root, "Classic", "map.esp"), "classic-map")
	mustWrite(t, filepath.Join(root, "Classic", "extra.txt"), "classic-extra")
	return root
}

func TestFindModuleConfig(t *testing.T) {
	root := setupFixture(t)
	path, err := fomodengine.FindModuleConfig(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "fomod", "ModuleConfig.xml"), path)
}

func TestProcess_SelectsVividBranch_NoClassicLeakage(t *testing.T) {
	root := setupFixture(t)
	dest := t.TempDir()

	choices := domain.FomodChoices{Steps: []domain.FomodStep{
		{Name: "Step 1", Groups: []domain.FomodGroup{{Name: "Map Style", Options: []string{"Vivid"}}}},
	}}

	require.NoError(t, fomodengine.Process(root, dest, choices))

	assert.FileExists(t, filepath.Join(dest, "core.esp"))
	data, err := os.ReadFile(filepath.Join(dest, "map.esp"))
	require.NoError(t, err)
	assert.Equal(t, "vivid-map", string(data))

	extra, err := os.ReadFile(filepath.Join(dest, "extra.txt"))
	require.NoError(t, err)
	assert.Equal(t, "vivid-extra", string(extra), "classic pattern must not overwrite the vivid conditional install")
}

func TestProcess_SelectsClassicBranch(t *testing.T) {
	root := setupFixture(t)
	dest := t.TempDir()

	choices := domain.FomodChoices{Steps: []domain.FomodStep{
		{Name: "Step 1", Groups: []domain.FomodGroup{{Name: "Map Style", Options: []string{"Classic"}}}},
	}}

	require.NoError(t, fomodengine.Process(root, dest, choices))

	data, err := os.ReadFile(filepath.Join(dest, "map.esp"))
	require.NoError(t, err)
	assert.Equal(t, "classic-map", string(data))
}

func TestProcess_MissingModuleConfigErrors(t *testing.T) {
	root := t.TempDir()
	err := fomodengine.Process(root, t.TempDir(), domain.FomodChoices{})
	assert.Error(t, err)
}

func TestProcess_UTF16LEBomIsHandled(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Core", "core.esp"), "core")

	// Minimal UTF-16 LE (with BOM) encoded XML document.
	xmlText := `<?xml version="1.0" encoding="utf-16"?><config><requiredInstallFiles><file source="Core/core.esp" destination="core.esp"/></requiredInstallFiles></config>`
	utf16le := make([]byte, 0, 2+len(xmlText)*2)
	utf16le = append(utf16le, 0xFF, 0xFE)
	for _, r := range xmlText {
		utf16le = append(utf16le, byte(r), 0)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "fomod"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "fomod", "ModuleConfig.xml"), utf16le, 0o644))

	dest := t.TempDir()
	require.NoError(t, fomodengine.Process(root, dest, domain.FomodChoices{}))
	assert.FileExists(t, filepath.Join(dest, "core.esp"))
}
