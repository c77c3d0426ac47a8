// Package tiling splits an image into square block tasks identified by a
// dense integer id.
//
// Ids run row-major over the block grid: id 0 is the top-left block and ids
// increase left to right, then top to bottom. Blocks on the right and bottom
// edges are clipped to the image.
package tiling

import (
	"iter"

	"github.com/FrancoYudica/DistributedFractals/types"
)

// TaskCount returns the number of blocks covering a width x height image.
//
// Parameters:
//   - width, height: Image size in pixels (> 0)
//   - block: Block edge length in pixels (> 0)
//
// Returns:
//   - uint64: ceil(width/block) * ceil(height/block)
func TaskCount(width, height, block int) uint64 {
	return uint64(ceilDiv(width, block)) * uint64(ceilDiv(height, block))
}

// TaskRect returns the pixel rectangle of block id.
//
// The caller must ensure id < TaskCount(width, height, block).
//
// Example:
//
//	// 100x50 image, 32px blocks: 4 blocks per row, id 5 is column 1 of row 1.
//	r := tiling.TaskRect(5, 100, 50, 32) // {X:32 Y:32 Width:32 Height:18}
func TaskRect(id uint64, width, height, block int) types.Rect {
	xTasks := uint64(ceilDiv(width, block))
	x := int(id%xTasks) * block
	y := int(id/xTasks) * block

	return types.Rect{
		X:      x,
		Y:      y,
		Width:  min(block, width-x),
		Height: min(block, height-y),
	}
}

// Tiles yields every (id, rect) pair of the image in id order.
func Tiles(width, height, block int) iter.Seq2[uint64, types.Rect] {
	return func(yield func(uint64, types.Rect) bool) {
		n := TaskCount(width, height, block)
		for id := range n {
			if !yield(id, TaskRect(id, width, height, block)) {
				return
			}
		}
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
