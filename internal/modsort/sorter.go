// Package modsort computes a mod install-order priority list (MO2's
// modlist.txt) from a collection's before/after mod rules and the
// already-sorted plugin load order, using an ensemble of four ranking
// methods so that asset-conflict-sensitive plugin positions and the
// collection's original ordering both have a voice alongside the
// rules graph itself.
package modsort

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nexusbridge/internal/domain"
)

type lookup struct {
	logicalToIdx map[string]int
	md5ToLogical map[string]string
	folders      []string
}

func buildLookup(mods []domain.Mod) lookup {
	l := lookup{
		logicalToIdx: make(map[string]int, len(mods)),
		md5ToLogical: make(map[string]string, len(mods)),
		folders:      make([]string, len(mods)),
	}
	for i, m := range mods {
		key := m.LogicalFilename
		if key == "" {
			key = m.Name
		}
		l.logicalToIdx[key] = i

		folder := m.FolderName
		if folder == "" {
			folder = m.Name
		}
		l.folders[i] = folder

		if m.MD5 != "" {
			l.md5ToLogical[m.MD5] = key
		}
	}
	return l
}

// resolveEdges turns a rule set into successor/predecessor adjacency lists
// over mod indices, skipping any rule whose source or reference can't be
// resolved to a mod in this collection. It returns the count of rules that
// were actually applied, mirroring the reference installer's log line.
func resolveEdges(mods []domain.Mod, rules []domain.ModRule, l lookup) (successors, predecessors [][]int, applied int) {
	successors = make([][]int, len(mods))
	predecessors = make([][]int, len(mods))

	resolve := func(md5, logical string) (string, bool) {
		if logical != "" {
			return logical, true
		}
		if md5 == "" {
			return "", false
		}
		name, ok := l.md5ToLogical[md5]
		return name, ok
	}

	for _, rule := range rules {
		srcKey, ok := resolve(rule.SourceMD5, rule.SourceLogicalName)
		if !ok {
			continue
		}
		refKey, ok := resolve(rule.ReferenceMD5, rule.ReferenceLogicalName)
		if !ok {
			continue
		}
		srcIdx, ok := l.logicalToIdx[srcKey]
		if !ok {
			continue
		}
		refIdx, ok := l.logicalToIdx[refKey]
		if !ok {
			continue
		}

		switch rule.Type {
		case "before":
			successors[srcIdx] = append(successors[srcIdx], refIdx)
			predecessors[refIdx] = append(predecessors[refIdx], srcIdx)
			applied++
		case "after":
			successors[refIdx] = append(successors[refIdx], srcIdx)
			predecessors[srcIdx] = append(predecessors[srcIdx], refIdx)
			applied++
		}
	}
	return successors, predecessors, applied
}

const (
	visitNone = iota
	visitInProgress
	visitDone
)

// dfsOrder performs an iterative depth-first traversal starting from sink
// nodes (no successors), visiting each node's predecessors before emitting
// it, so the result is a post-order list: sources first, sinks last. Ties
// among sinks (and among any leftover disconnected nodes) are broken
// alphabetically by folder name for determinism. A cycle is tolerated — the
// offending predecessor is simply skipped — and reported via hasCycle.
func dfsOrder(successors, predecessors [][]int, folders []string) (order []int, hasCycle bool) {
	n := len(folders)
	visited := make([]int, n)

	roots := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if len(successors[i]) == 0 {
			roots = append(roots, i)
		}
	}
	sort.Slice(roots, func(a, b int) bool { return folders[roots[a]] < folders[roots[b]] })

	type frame struct {
		node    int
		predPos int
	}

	visitFrom := func(start int) {
		if visited[start] != visitNone {
			return
		}
		stack := []frame{{node: start, predPos: 0}}
		visited[start] = visitInProgress

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			preds := predecessors[top.node]

			advanced := false
			for top.predPos < len(preds) {
				p := preds[top.predPos]
				top.predPos++
				if visited[p] == visitInProgress {
					hasCycle = true
					continue
				}
				if visited[p] == visitNone {
					visited[p] = visitInProgress
					stack = append(stack, frame{node: p, predPos: 0})
					advanced = true
					break
				}
			}
			if advanced {
				continue
			}

			visited[top.node] = visitDone
			order = append(order, top.node)
			stack = stack[:len(stack)-1]
		}
	}

	for _, r := range roots {
		visitFrom(r)
	}

	remaining := make([]int, 0)
	for i := 0; i < n; i++ {
		if visited[i] == visitNone {
			remaining = append(remaining, i)
		}
	}
	sort.Slice(remaining, func(a, b int) bool { return folders[remaining[a]] < folders[remaining[b]] })
	for _, r := range remaining {
		visitFrom(r)
	}

	return order, hasCycle
}

// GenerateModOrder runs the DFS-from-sinks pass alone and returns folder
// names ordered with MO2's "top = winner" convention: highest-priority mods
// first. This matches the reference installer's plain generateModOrder,
// used as a fallback when plugin positions aren't available.
func GenerateModOrder(mods []domain.Mod, rules []domain.ModRule) []string {
	if len(mods) == 0 {
		return nil
	}
	l := buildLookup(mods)
	successors, predecessors, _ := resolveEdges(mods, rules, l)
	order, _ := dfsOrder(successors, predecessors, l.folders)

	result := make([]string, len(order))
	for i, idx := range order {
		result[len(order)-1-i] = l.folders[idx]
	}
	return result
}

// kahnSort performs a priority-queue topological sort: nodes with no
// remaining predecessors are released in ascending tieBreaker order. Any
// node left unreleased because of a cycle is appended afterward, sorted by
// tieBreaker, so the result always contains every node.
func kahnSort(n int, successors, predecessors [][]int, tieBreaker []int) []int {
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
	popReady := func() int {
		best := 0
		for i := 1; i < len(ready); i++ {
			if tieBreaker[ready[i]] < tieBreaker[ready[best]] {
				best = i
			}
		}
		node := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		return node
	}

	result := make([]int, 0, n)
	added := make([]bool, n)
	for len(ready) > 0 {
		node := popReady()
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
		remaining := make([]int, 0, n-len(result))
		for i := 0; i < n; i++ {
			if !added[i] {
				remaining = append(remaining, i)
			}
		}
		sort.Slice(remaining, func(a, b int) bool { return tieBreaker[remaining[a]] < tieBreaker[remaining[b]] })
		result = append(result, remaining...)
	}
	return result
}

const maxPluginPosition = math.MaxInt32

// buildPluginPositionMap maps each lower-cased plugin filename to its
// position in the already-sorted plugin load order.
func buildPluginPositionMap(sortedPlugins []string) map[string]int {
	pos := make(map[string]int, len(sortedPlugins))
	for i, p := range sortedPlugins {
		pos[strings.ToLower(p)] = i
	}
	return pos
}

// getModPluginPosition walks modsDir/modFolder for .esp/.esm/.esl files and
// returns the earliest position any of them hold in pluginPosition, or
// maxPluginPosition if the mod has none (or isn't installed on disk).
func getModPluginPosition(modFolder, modsDir string, pluginPosition map[string]int) int {
	modPath := filepath.Join(modsDir, modFolder)
	if _, err := os.Stat(modPath); err != nil {
		return maxPluginPosition
	}

	earliest := maxPluginPosition
	_ = filepath.WalkDir(modPath, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil //nolint:nilerr
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".esp" && ext != ".esm" && ext != ".esl" {
			return nil
		}
		if pos, ok := pluginPosition[strings.ToLower(filepath.Base(path))]; ok && pos < earliest {
			earliest = pos
		}
		return nil
	})
	return earliest
}

// Ensemble combination weights: DFS and Kahn both honor the rules graph so
// they're weighted highest; plugin order matters for asset conflicts;
// collection order is the lowest-weight baseline tie-breaker.
const (
	weightDFS        = 2.0
	weightKahn       = 2.0
	weightPlugin     = 1.5
	weightCollection = 0.5
	weightTotal      = weightDFS + weightKahn + weightPlugin + weightCollection
)

// GenerateModOrderCombined produces the final mod priority order by voting
// across four independent rankings — DFS-from-sinks, Kahn's algorithm
// tie-broken by plugin position, pure plugin order, and original collection
// order — then re-running Kahn's algorithm using the weighted-average rank
// as a soft tie-breaker so hard before/after constraints are still honored
// wherever the rule graph is acyclic. modsDir is where mods are already
// installed, used to find each mod's plugin files; sortedPlugins is the
// output of a prior pluginsort pass. The result is reversed at the end so
// index 0 is the top-priority ("winner") mod, matching MO2's modlist.txt
// convention.
func GenerateModOrderCombined(mods []domain.Mod, rules []domain.ModRule, sortedPlugins []string, modsDir string) []string {
	n := len(mods)
	if n == 0 {
		return nil
	}

	l := buildLookup(mods)
	successors, predecessors, _ := resolveEdges(mods, rules, l)

	pluginPosition := buildPluginPositionMap(sortedPlugins)
	modPluginPos := make([]int, n)
	for i := range mods {
		modPluginPos[i] = getModPluginPosition(l.folders[i], modsDir, pluginPosition)
	}

	// Method 1: DFS sort.
	dfsIdx, _ := dfsOrder(successors, predecessors, l.folders)
	dfsRank := make([]int, n)
	for pos, idx := range dfsIdx {
		dfsRank[idx] = pos
	}

	// Method 2: Kahn's algorithm, tie-broken by plugin position.
	kahnIdx := kahnSort(n, successors, predecessors, modPluginPos)
	kahnRank := make([]int, n)
	for pos, idx := range kahnIdx {
		kahnRank[idx] = pos
	}

	// Method 3: pure plugin order.
	pluginIdx := make([]int, n)
	for i := range pluginIdx {
		pluginIdx[i] = i
	}
	sort.SliceStable(pluginIdx, func(a, b int) bool { return modPluginPos[pluginIdx[a]] < modPluginPos[pluginIdx[b]] })
	pluginRank := make([]int, n)
	for pos, idx := range pluginIdx {
		pluginRank[idx] = pos
	}

	// Method 4: original collection order.
	collectionRank := make([]int, n)
	for i := range collectionRank {
		collectionRank[i] = i
	}

	combinedScore := make([]float64, n)
	for i := 0; i < n; i++ {
		combinedScore[i] = (weightDFS*float64(dfsRank[i]) +
			weightKahn*float64(kahnRank[i]) +
			weightPlugin*float64(pluginRank[i]) +
			weightCollection*float64(collectionRank[i])) / weightTotal
	}

	sortedByScore := make([]int, n)
	for i := range sortedByScore {
		sortedByScore[i] = i
	}
	sort.SliceStable(sortedByScore, func(a, b int) bool { return combinedScore[sortedByScore[a]] < combinedScore[sortedByScore[b]] })
	combinedRank := make([]int, n)
	for pos, idx := range sortedByScore {
		combinedRank[idx] = pos
	}

	finalIdx := kahnSort(n, successors, predecessors, combinedRank)

	result := make([]string, n)
	for i, idx := range finalIdx {
		result[n-1-i] = l.folders[idx]
	}
	return result
}

// CountViolations reports how many predecessor constraints are broken by
// order (a mod appears above a mod it was required to follow), given order
// is in MO2's top-wins layout (index 0 = highest priority). A positive count
// means the rule graph contains a cycle of roughly that many edges.
func CountViolations(mods []domain.Mod, rules []domain.ModRule, order []string) int {
	n := len(mods)
	if n == 0 {
		return 0
	}
	l := buildLookup(mods)
	_, predecessors, _ := resolveEdges(mods, rules, l)

	position := make(map[string]int, len(order))
	for i, folder := range order {
		position[folder] = i
	}

	violations := 0
	for i := 0; i < n; i++ {
		iPos, ok := position[l.folders[i]]
		if !ok {
			continue
		}
		for _, pred := range predecessors[i] {
			predPos, ok := position[l.folders[pred]]
			// pred is required to load before i, so pred's files should be
			// the ones overridden: pred belongs further down the winner-at-
			// top list than i. A lower position (closer to the top/winner
			// end) than i is a constraint violation.
			if ok && predPos < iPos {
				violations++
			}
		}
	}
	return violations
}

// WriteModList writes a modlist.txt in MO2's format: a "+" prefixed folder
// name per line, top entry wins. order must already be in top-wins layout.
func WriteModList(path string, order []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := writeModList(f, order); err != nil {
		return err
	}
	fmt.Printf("Generated modlist.txt with %d mods\n", len(order))
	return nil
}

func writeModList(w io.Writer, order []string) error {
	if _, err := fmt.Fprintln(w, "# This file was automatically generated by NexusBridge"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "# Mod priority: Top = Winner, Bottom = Loser"); err != nil {
		return err
	}
	for _, folder := range order {
		if _, err := fmt.Fprintf(w, "+%s\n", folder); err != nil {
			return err
		}
	}
	return nil
}
