package progress

import (
	"github.com/lessonhub/lesson-content-hub/internal/domain/content"
)

// Summary aggregates one user's progress over a lesson's resolved structure.
type Summary struct {
	TotalBlocks     int    `json:"total_blocks"`
	SeenBlocks      int    `json:"seen_blocks"`
	CompletedBlocks int    `json:"completed_blocks"`
	LastSeenBlockID *int64 `json:"last_seen_block_id"`
	Completed       bool   `json:"completed"`
}

// Summarize combines a resolved structure with a progress map. Blocks are
// walked in position order, so LastSeenBlockID ends up as the highest-position
// block with any recorded progress. A lesson counts as completed only when it
// has blocks and every one of them is completed.
func Summarize(structure content.Structure, progressMap Map) Summary {
	summary := Summary{TotalBlocks: len(structure)}

	for _, block := range structure {
		status, ok := progressMap[block.BlockID]
		if !ok {
			continue
		}
		summary.SeenBlocks++
		id := block.BlockID
		summary.LastSeenBlockID = &id
		if status == StatusCompleted {
			summary.CompletedBlocks++
		}
	}

	summary.Completed = summary.TotalBlocks > 0 && summary.CompletedBlocks == summary.TotalBlocks
	return summary
}
