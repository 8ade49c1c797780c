package modsort_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nexusbridge/internal/domain"
	"nexusbridge/internal/modsort"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modAt(name string) domain.Mod {
	return domain.Mod{Name: name, LogicalFilename: name, FolderName: name}
}

func TestGenerateModOrder_BeforeRuleIsHonored(t *testing.T) {
	mods := []domain.Mod{modAt("A"), modAt("B"), modAt("C")}
	rules := []domain.ModRule{
		{Type: "before", SourceLogicalName: "A", ReferenceLogicalName: "B"},
	}

	order := modsort.GenerateModOrder(mods, rules)
	require.Len(t, order, 3)

	posA := indexOf(order, "A")
	posB := indexOf(order, "B")
	require.NotEqual(t, -1, posA)
	require.NotEqual(t, -1, posB)
	assert.Greater(t, posA, posB, "A was declared before B, so B (the winner) must sit above A")
}

func TestGenerateModOrder_AfterRuleIsHonored(t *testing.T) {
	mods := []domain.Mod{modAt("A"), modAt("B")}
	rules := []domain.ModRule{
		{Type: "after", SourceLogicalName: "A", ReferenceLogicalName: "B"},
	}

	order := modsort.GenerateModOrder(mods, rules)
	posA := indexOf(order, "A")
	posB := indexOf(order, "B")
	assert.Less(t, posA, posB, "A was declared after B, so A (the winner) must sit above B")
}

func TestGenerateModOrder_AlphabeticalTieBreakWithNoRules(t *testing.T) {
	mods := []domain.Mod{modAt("Zebra"), modAt("Apple"), modAt("Mango")}
	order := modsort.GenerateModOrder(mods, nil)
	require.Len(t, order, 3)
	assert.Equal(t, []string{"Zebra", "Mango", "Apple"}, order)
}

func TestGenerateModOrder_UnresolvableRuleIsIgnored(t *testing.T) {
	mods := []domain.Mod{modAt("A"), modAt("B")}
	rules := []domain.ModRule{
		{Type: "before", SourceLogicalName: "A", ReferenceLogicalName: "DoesNotExist"},
	}
	order := modsort.GenerateModOrder(mods, rules)
	assert.ElementsMatch(t, []string{"A", "B"}, order)
}

func TestGenerateModOrder_CycleDoesNotPanicAndIncludesAllMods(t *testing.T) {
	mods := []domain.Mod{modAt("A"), modAt("B"), modAt("C")}
	rules := []domain.ModRule{
		{Type: "before", SourceLogicalName: "A", ReferenceLogicalName: "B"},
		{Type: "before", SourceLogicalName: "B", ReferenceLogicalName: "C"},
		{Type: "before", SourceLogicalName: "C", ReferenceLogicalName: "A"},
	}
	order := modsort.GenerateModOrder(mods, rules)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, order)

	violations := modsort.CountViolations(mods, rules, order)
	assert.Greater(t, violations, 0, "a 3-edge cycle cannot be satisfied without at least one violation")
}

func TestGenerateModOrderCombined_HonorsRuleAndUsesPluginPosition(t *testing.T) {
	modsDir := t.TempDir()
	writeEsp(t, modsDir, "A", "a.esp")
	writeEsp(t, modsDir, "B", "b.esp")
	writeEsp(t, modsDir, "C", "c.esp")

	mods := []domain.Mod{modAt("A"), modAt("B"), modAt("C")}
	rules := []domain.ModRule{
		{Type: "before", SourceLogicalName: "A", ReferenceLogicalName: "B"},
	}
	// Plugin load order puts c.esp first, then a.esp, then b.esp.
	sortedPlugins := []string{"c.esp", "a.esp", "b.esp"}

	order := modsort.GenerateModOrderCombined(mods, rules, sortedPlugins, modsDir)
	require.Len(t, order, 3)

	posA := indexOf(order, "A")
	posB := indexOf(order, "B")
	assert.Greater(t, posA, posB, "hard before/after constraint must still hold after ensemble voting")

	violations := modsort.CountViolations(mods, rules, order)
	assert.Equal(t, 0, violations, "an acyclic rule graph must produce a fully consistent final order")
}

func TestGenerateModOrderCombined_EmptyMods(t *testing.T) {
	order := modsort.GenerateModOrderCombined(nil, nil, nil, t.TempDir())
	assert.Empty(t, order)
}

func TestWriteModList_Format(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modlist.txt")

	require.NoError(t, modsort.WriteModList(path, []string{"Winner Mod", "Loser Mod"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, "# This file was automatically generated by NexusBridge", lines[0])
	assert.Equal(t, "# Mod priority: Top = Winner, Bottom = Loser", lines[1])
	assert.Equal(t, "+Winner Mod", lines[2])
	assert.Equal(t, "+Loser Mod", lines[3])
}

func writeEsp(t *testing.T, modsDir, folder, filename string) {
	t.Helper()
	dir := filepath.Join(modsDir, folder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte("plugin"), 0o644))
}

func indexOf(haystack []string, needle string) int {
	for i, s := range haystack {
		if s == needle {
			return i
		}
	}
	return -1
}
