package image

import (
	"image"
	"ppm-diff/internal/pixel"
)

// regionGap is the distance under which two regions are reported as one.
const regionGap = 10

// FindRegions groups 8-connected pixels for which changed returns true and
// returns their bounding rectangles, merging rectangles that overlap or lie
// within regionGap pixels of each other. Rectangles are ordered by the first
// changed pixel found in row-major order.
func FindRegions(b *pixel.Buffer, changed func(r uint8, g uint8, b uint8) bool) []image.Rectangle {
	width := b.Width()
	height := b.Height()

	changedMap := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			changedMap[y*width+x] = changed(b.RGB(x, y))
		}
	}

	visited := make([]bool, width*height)
	var rectangles []image.Rectangle
	for i, c := range changedMap {
		if c && !visited[i] {
			rectangles = append(rectangles, boundingBox(changedMap, visited, i%width, i/width, width, height))
		}
	}

	return mergeRectangles(rectangles)
}

func boundingBox(changedMap []bool, visited []bool, startX int, startY int, width int, height int) image.Rectangle {
	rect := image.Rect(startX, startY, startX+1, startY+1)

	queue := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		rect = rect.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}

				nx := p.X + dx
				ny := p.Y + dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				i := ny*width + nx
				if changedMap[i] && !visited[i] {
					visited[i] = true
					queue = append(queue, image.Point{X: nx, Y: ny})
				}
			}
		}
	}

	return rect
}

func mergeRectangles(rects []image.Rectangle) []image.Rectangle {
	if len(rects) <= 1 {
		return rects
	}

	merged := make([]image.Rectangle, 0, len(rects))
	used := make([]bool, len(rects))

	for i := range rects {
		if used[i] {
			continue
		}

		current := rects[i]
		mergedAny := true
		for mergedAny {
			mergedAny = false
			for j := i + 1; j < len(rects); j++ {
				if used[j] {
					continue
				}
				if rectanglesClose(current, rects[j], regionGap) {
					current = current.Union(rects[j])
					used[j] = true
					mergedAny = true
				}
			}
		}

		merged = append(merged, current)
	}

	return merged
}

func rectanglesClose(r1 image.Rectangle, r2 image.Rectangle, gap int) bool {
	return r1.Inset(-gap).Overlaps(r2)
}
