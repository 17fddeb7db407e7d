// Package textmeasure provides the default text measurement collaborator:
// a fixed-face measurer with naive word wrapping and a bounded result
// cache. Hosts with real typography replace it with their own Measurer.
package textmeasure

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/go-vitrine/vitrine/pkg/geometry"
	"github.com/go-vitrine/vitrine/pkg/host"
	"github.com/go-vitrine/vitrine/pkg/tree"
)

// ContentBinding is the binding key holding a text node's content.
const ContentBinding = "text"

const defaultCacheSize = 512

type cacheKey struct {
	text  string
	width float64
	mode  host.MeasureMode
}

// Measurer measures text leaves against a fixed bitmap face. It is safe for
// concurrent use: the face is read-only and the cache is internally
// synchronized.
type Measurer struct {
	face       font.Face
	lineHeight float64
	cache      *lru.Cache[cacheKey, geometry.Size]
}

// New returns a measurer over the built-in fixed face.
func New() *Measurer {
	face := basicfont.Face7x13
	cache, err := lru.New[cacheKey, geometry.Size](defaultCacheSize)
	if err != nil {
		panic(err) // unreachable: size is a positive constant
	}
	return &Measurer{
		face:       face,
		lineHeight: float64(face.Metrics().Height.Ceil()),
		cache:      cache,
	}
}

// Measure returns the intrinsic size of the node's text content under the
// proposed constraints. Non-text nodes and empty content measure as a
// single empty line.
func (m *Measurer) Measure(node *tree.Node, constraints host.MeasureConstraints) geometry.Size {
	text, _ := node.Bindings[ContentBinding].(string)
	if text == "" {
		return geometry.Size{Width: 0, Height: m.lineHeight}
	}

	key := cacheKey{text: text, width: constraints.Width, mode: constraints.WidthMode}
	if size, ok := m.cache.Get(key); ok {
		return size
	}

	size := m.measure(text, constraints)
	m.cache.Add(key, size)
	return size
}

func (m *Measurer) measure(text string, constraints host.MeasureConstraints) geometry.Size {
	limit := constraints.Width
	unbounded := constraints.WidthMode == host.MeasureUnconstrained || limit <= 0

	maxLine := 0.0
	lines := 0
	for _, paragraph := range strings.Split(text, "\n") {
		if unbounded {
			lines++
			if w := m.stringWidth(paragraph); w > maxLine {
				maxLine = w
			}
			continue
		}
		lines += m.wrapParagraph(paragraph, limit, &maxLine)
	}
	if lines == 0 {
		lines = 1
	}

	width := maxLine
	if constraints.WidthMode == host.MeasureExactly {
		width = constraints.Width
	} else if !unbounded && width > limit {
		width = limit
	}
	height := float64(lines) * m.lineHeight
	if constraints.HeightMode == host.MeasureExactly {
		height = constraints.Height
	} else if constraints.HeightMode == host.MeasureAtMost && height > constraints.Height {
		height = constraints.Height
	}
	return geometry.Size{Width: width, Height: height}
}

// wrapParagraph greedily packs words into lines of at most limit pixels,
// returning the line count and widening maxLine as needed. A single word
// wider than the limit gets its own line rather than being split.
func (m *Measurer) wrapParagraph(paragraph string, limit float64, maxLine *float64) int {
	words := strings.Fields(paragraph)
	if len(words) == 0 {
		return 1
	}
	spaceWidth := m.stringWidth(" ")
	lines := 1
	lineWidth := 0.0
	for _, word := range words {
		wordWidth := m.stringWidth(word)
		candidate := lineWidth + wordWidth
		if lineWidth > 0 {
			candidate += spaceWidth
		}
		if lineWidth > 0 && candidate > limit {
			lines++
			lineWidth = wordWidth
		} else {
			lineWidth = candidate
		}
		if lineWidth > *maxLine {
			*maxLine = lineWidth
		}
	}
	return lines
}

func (m *Measurer) stringWidth(s string) float64 {
	return float64(font.MeasureString(m.face, s).Ceil())
}
