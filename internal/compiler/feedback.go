package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/rulekit/internal/ir"
)

// CycleWarning describes rules that re-trigger each other through the
// values they write and read.
//
// Cycles are not errors. A level-triggered rule that bumps the counter it
// compares is a common way to count, and two rules toggling one flag is a
// blink. They are still worth a look, since a cycle fires on every tick
// its conditions keep holding.
type CycleWarning struct {
	Path    []string `json:"path"` // rule ids: ["a", "b", "a"]
	Message string   `json:"message"`
	Level   string   `json:"level"` // "warning" or "info"
}

// AnalyzeFeedback builds the rule dependency graph (rule A points at rule B
// when an action of A writes a counter, flag or game state that a
// condition of B reads) and reports its strongly connected components.
//
// Self-loops are reported at info level, longer cycles as warnings.
// Results follow rule definition order.
func AnalyzeFeedback(snap *ir.Snapshot) []CycleWarning {
	warnings := []CycleWarning{}
	if len(snap.Rules) == 0 {
		return warnings
	}

	graph := buildFeedbackGraph(snap)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || graph.hasEdge(scc[0], scc[0]) {
			warnings = append(warnings, sccToWarning(scc, graph))
		}
	}
	return warnings
}

// feedbackGraph is an adjacency list over rule ids. order keeps rule
// definition order so traversal is deterministic.
type feedbackGraph struct {
	order []string
	edges map[string][]string
}

func (g feedbackGraph) hasEdge(from, to string) bool {
	for _, n := range g.edges[from] {
		if n == to {
			return true
		}
	}
	return false
}

// valueKeys canonicalizes counter and flag references, which may use
// either the name or the id.
type valueKeys map[string]string

func newValueKeys(snap *ir.Snapshot) valueKeys {
	keys := make(valueKeys)
	for _, c := range snap.Counters {
		canon := "counter:" + c.Name
		keys["counter:"+c.ID] = canon
		keys[canon] = canon
	}
	for _, f := range snap.Flags {
		canon := "flag:" + f.Name
		keys["flag:"+f.ID] = canon
		keys[canon] = canon
	}
	return keys
}

func (k valueKeys) resolve(kind, ref string) string {
	key := kind + ":" + ref
	if canon, ok := k[key]; ok {
		return canon
	}
	return key
}

const gameStateKey = "gameState"

func conditionReads(keys valueKeys, c ir.Condition) []string {
	switch c := c.(type) {
	case ir.CounterCondition:
		return []string{keys.resolve("counter", c.CounterName)}
	case ir.FlagCondition:
		return []string{keys.resolve("flag", c.FlagID)}
	case ir.GameStateCondition:
		return []string{gameStateKey}
	default:
		return nil
	}
}

func actionWrites(keys valueKeys, a ir.Action, out []string) []string {
	switch a := a.(type) {
	case ir.CounterAction:
		return append(out, keys.resolve("counter", a.CounterName))
	case ir.AddScoreAction:
		return append(out, keys.resolve("counter", "score"))
	case ir.SetFlagAction:
		return append(out, keys.resolve("flag", a.FlagID))
	case ir.ToggleFlagAction:
		return append(out, keys.resolve("flag", a.FlagID))
	case ir.SuccessAction, ir.FailureAction:
		return append(out, gameStateKey)
	case ir.RandomAction:
		for _, nested := range a.Actions {
			out = actionWrites(keys, nested, out)
		}
	}
	return out
}

func buildFeedbackGraph(snap *ir.Snapshot) feedbackGraph {
	keys := newValueKeys(snap)
	g := feedbackGraph{edges: make(map[string][]string)}

	readers := make(map[string][]string)
	for _, rule := range snap.Rules {
		if _, seen := g.edges[rule.ID]; seen {
			continue
		}
		g.order = append(g.order, rule.ID)
		g.edges[rule.ID] = []string{}
		if !rule.Enabled {
			continue
		}
		for _, c := range rule.Triggers.Conditions {
			for _, key := range conditionReads(keys, c) {
				readers[key] = appendUnique(readers[key], rule.ID)
			}
		}
	}

	for _, rule := range snap.Rules {
		if !rule.Enabled {
			continue
		}
		var writes []string
		for _, a := range rule.Actions {
			writes = actionWrites(keys, a, writes)
		}
		for _, key := range writes {
			for _, reader := range readers[key] {
				g.edges[rule.ID] = appendUnique(g.edges[rule.ID], reader)
			}
		}
	}
	return g
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// tarjanSCC finds strongly connected components with Tarjan's algorithm.
func tarjanSCC(g feedbackGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, sortByOrder(scc, g.order))
		}
	}

	for _, node := range g.order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sortByOrder(scc []string, order []string) []string {
	members := make(map[string]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}
	sorted := make([]string, 0, len(scc))
	for _, id := range order {
		if members[id] {
			sorted = append(sorted, id)
		}
	}
	return sorted
}

func sccToWarning(scc []string, g feedbackGraph) CycleWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CycleWarning{
			Path:    []string{id, id},
			Message: fmt.Sprintf("rule %s re-triggers itself through the values it writes", id),
			Level:   "info",
		}
	}

	path := cyclePath(scc, g)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("rules feed each other: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// cyclePath walks edges inside the component from its first rule until
// it returns there or runs out of unvisited members.
func cyclePath(scc []string, g feedbackGraph) []string {
	inSCC := make(map[string]bool, len(scc))
	for _, id := range scc {
		inSCC[id] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := map[string]bool{}
	for {
		visited[current] = true
		next := ""
		for _, n := range g.edges[current] {
			if inSCC[n] && (!visited[n] || n == start) && n != current {
				next = n
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
