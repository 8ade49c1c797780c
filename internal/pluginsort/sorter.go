// Package pluginsort computes a Bethesda plugin load order (MO2's
// plugins.txt) from a collection's enabled plugins and plugin rules.
//
// The reference installer hands this off to libloot, which combines a
// community-curated masterlist with full form-level conflict analysis. No
// Go binding for that library exists in this module's dependency corpus, so
// this package is a transparent, self-contained stand-in: a topological
// sort over each plugin's declared masters (its TES4 header's MAST
// subrecords) and the collection's explicit plugin rules, tie-broken by the
// collection's original plugin order. It will not out-rank a real LOOT run
// on asset-conflict heuristics, but it honors every hard dependency and
// rule a collection can express.
package pluginsort

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nexusbridge/internal/domain"
)

// locatePlugin searches modsDir's mod folders in directory-listing order
// (MO2 priority: first match wins for an unsorted listing, matching the
// reference installer's plain directory_iterator scan) and falls back to
// gamePath/Data, mirroring how MO2's virtual filesystem resolves a loose
// plugin file across its active mods.
func locatePlugin(name, modsDir, gamePath string) string {
	if modsDir != "" {
		entries, err := os.ReadDir(modsDir)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				candidate := filepath.Join(modsDir, e.Name(), name)
				if _, err := os.Stat(candidate); err == nil {
					return candidate
				}
			}
		}
	}
	if gamePath != "" {
		candidate := filepath.Join(gamePath, "Data", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Sort returns enabled plugins topologically ordered so that every plugin
// loads after its masters and after any plugin named in a pluginRule's
// After list. Ties (plugins with no ordering relationship) are broken by
// the order they appear in plugins, matching the collection's own order.
// A plugin whose file can't be located or parsed keeps its collection-order
// position rather than failing the whole sort — this function never errors.
func Sort(plugins []domain.Plugin, rules []domain.PluginRule, modsDir, gamePath string) []string {
	enabled := make([]string, 0, len(plugins))
	for _, p := range plugins {
		if p.Enabled {
			enabled = append(enabled, p.Name)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	index := make(map[string]int, len(enabled))
	for i, name := range enabled {
		index[strings.ToLower(name)] = i
	}

	n := len(enabled)
	successors := make([][]int, n)
	predecessors := make([][]int, n)
	addEdge := func(beforeIdx, afterIdx int) {
		successors[beforeIdx] = append(successors[beforeIdx], afterIdx)
		predecessors[afterIdx] = append(predecessors[afterIdx], beforeIdx)
	}

	for i, name := range enabled {
		path := locatePlugin(name, modsDir, gamePath)
		if path == "" {
			continue
		}
		masters, err := ReadMasters(path)
		if err != nil {
			continue
		}
		for _, master := range masters {
			if j, ok := index[strings.ToLower(master)]; ok && j != i {
				addEdge(j, i)
			}
		}
	}

	for _, rule := range rules {
		i, ok := index[strings.ToLower(rule.Name)]
		if !ok {
			continue
		}
		for _, after := range rule.After {
			j, ok := index[strings.ToLower(after)]
			if !ok || j == i {
				continue
			}
			addEdge(j, i)
		}
	}

	collectionRank := make([]int, n)
	for i := range collectionRank {
		collectionRank[i] = i
	}
	order := kahnSortByRank(n, successors, predecessors, collectionRank)

	result := make([]string, n)
	for i, idx := range order {
		result[i] = enabled[idx]
	}
	return result
}

// kahnSortByRank is the plugin-graph counterpart of modsort's kahnSort:
// nodes with no remaining predecessors are released in ascending rank
// order, and any node left over because of a cycle is appended afterward in
// rank order so the result always contains every node.
func kahnSortByRank(n int, successors, predecessors [][]int, rank []int) []int {
	inDegree := make([]int, n)
	for i := 0; i < n; i++ {
		inDegree[i] = len(predecessors[i])
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	result := make([]int, 0, n)
	added := make([]bool, n)
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool { return rank[ready[a]] < rank[ready[b]] })
		node := ready[0]
		ready = ready[1:]
		result = append(result, node)
		added[node] = true
		for _, succ := range successors[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(result) < n {
		var remaining []int
		for i := 0; i < n; i++ {
			if !added[i] {
				remaining = append(remaining, i)
			}
		}
		sort.Slice(remaining, func(a, b int) bool { return rank[remaining[a]] < rank[remaining[b]] })
		result = append(result, remaining...)
	}
	return result
}

// WritePluginList writes a plugins.txt in MO2's format: one "*" prefixed
// plugin name per line, in load order (first = loads first).
func WritePluginList(path string, order []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "# This file was automatically generated by NexusBridge"); err != nil {
		return err
	}
	for _, name := range order {
		if _, err := fmt.Fprintf(f, "*%s\n", name); err != nil {
			return err
		}
	}
	fmt.Printf("Generated plugins.txt with %d plugins\n", len(order))
	return nil
}
