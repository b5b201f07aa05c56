package document

import (
	"fmt"
	"sort"
)

// Severity classifies an Issue.
type Severity string

// Severity levels.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes reported by Validate.
const (
	IssueDanglingChild       = "dangling_child"
	IssueDuplicateParent     = "duplicate_parent"
	IssueRootHasParent       = "root_has_parent"
	IssueCycle               = "cycle"
	IssueOrphan              = "orphan"
	IssueCodeMissingLanguage = "code_missing_language"
)

// Issue is a diagnostic about a document. Validation never fails; it
// reports what it finds.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	BlockID  BlockID  `json:"blockId,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.BlockID != "" {
		return fmt.Sprintf("%s: %s: %s (%s)", i.Severity, i.BlockID, i.Message, i.Code)
	}
	return fmt.Sprintf("%s: %s (%s)", i.Severity, i.Message, i.Code)
}

// HasErrors returns true if any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks d against the tree invariants.
func (d *Document) Validate() []Issue {
	return Validate(d)
}

// Validate walks d without modifying it and returns every issue found. The
// result is empty, not nil, for a sound document.
func Validate(d *Document) []Issue {
	issues := []Issue{}
	order := d.orderedIDs()

	referenced := make(map[BlockID]int, len(d.blocks))
	for _, id := range order {
		b := d.blocks[id]
		for _, child := range b.Children {
			if _, ok := d.blocks[child]; !ok {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     IssueDanglingChild,
					BlockID:  id,
					Message:  fmt.Sprintf("child %s does not exist", child),
				})
				continue
			}
			if child == d.rootID {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     IssueRootHasParent,
					BlockID:  id,
					Message:  "root block is listed as a child",
				})
				continue
			}
			referenced[child]++
			if referenced[child] > 1 {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     IssueDuplicateParent,
					BlockID:  child,
					Message:  fmt.Sprintf("block is also listed as a child of %s", id),
				})
			}
		}
	}

	for _, id := range d.cycleMembers(order) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     IssueCycle,
			BlockID:  id,
			Message:  "block is its own descendant",
		})
	}

	reachable := make(map[BlockID]bool, len(d.blocks))
	d.Walk(func(b *Block) bool {
		reachable[b.ID] = true
		return true
	})
	for _, id := range order {
		if !reachable[id] {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     IssueOrphan,
				BlockID:  id,
				Message:  "block is not reachable from the root",
			})
		}
	}

	for _, id := range order {
		if c, ok := d.blocks[id].Content.(Code); ok && c.Language == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Code:     IssueCodeMissingLanguage,
				BlockID:  id,
				Message:  "code block has no language",
			})
		}
	}

	return issues
}

// cycleMembers returns, in order, the blocks reached by a back edge during a
// depth-first search, i.e. blocks that are their own descendants.
func (d *Document) cycleMembers(order []BlockID) []BlockID {
	const (
		white = iota
		grey
		black
	)
	color := make(map[BlockID]int, len(d.blocks))
	onCycle := make(map[BlockID]bool)

	var visit func(id BlockID)
	visit = func(id BlockID) {
		color[id] = grey
		for _, child := range d.blocks[id].Children {
			if _, ok := d.blocks[child]; !ok {
				continue
			}
			switch color[child] {
			case white:
				visit(child)
			case grey:
				onCycle[child] = true
			}
		}
		color[id] = black
	}
	for _, id := range order {
		if color[id] == white {
			visit(id)
		}
	}

	var members []BlockID
	for _, id := range order {
		if onCycle[id] {
			members = append(members, id)
		}
	}
	return members
}

// orderedIDs lists every block: reachable blocks in pre-order, then the
// rest sorted by id.
func (d *Document) orderedIDs() []BlockID {
	ids := make([]BlockID, 0, len(d.blocks))
	seen := make(map[BlockID]bool, len(d.blocks))
	d.Walk(func(b *Block) bool {
		seen[b.ID] = true
		ids = append(ids, b.ID)
		return true
	})
	if len(ids) == len(d.blocks) {
		return ids
	}
	var rest []BlockID
	for id := range d.blocks {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(ids, rest...)
}
