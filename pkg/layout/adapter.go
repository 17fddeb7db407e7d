// Package layout translates a component tree into a transient tree of
// pooled flexbox-engine nodes, runs the solver and reads per-node frames
// back. The pool, not the adapter, is the only cross-call state.
package layout

import (
	"fmt"
	"math"
	"sync"

	"github.com/kjk/flex"
	"go.uber.org/zap"

	"github.com/go-vitrine/vitrine/pkg/errors"
	"github.com/go-vitrine/vitrine/pkg/geometry"
	"github.com/go-vitrine/vitrine/pkg/host"
	"github.com/go-vitrine/vitrine/pkg/style"
	"github.com/go-vitrine/vitrine/pkg/tree"
)

// solveMu serializes flex.CalculateLayout: the engine keeps package-level
// generation state, so concurrent solves on independent trees are not safe.
// Tree building and pool traffic stay concurrent.
var solveMu sync.Mutex

// Adapter drives the flexbox engine for one component tree at a time. It
// holds no per-call state, so one adapter may be shared by any number of
// goroutines laying out independent trees.
type Adapter struct {
	pool     *NodePool
	registry *tree.Registry
	measurer host.Measurer
	logger   *zap.Logger
}

// NewAdapter creates an adapter over the given pool. A nil measurer leaves
// measurable leaves at their style-derived size; a nil logger is replaced
// with a no-op logger.
func NewAdapter(pool *NodePool, registry *tree.Registry, measurer host.Measurer, logger *zap.Logger) *Adapter {
	if pool == nil {
		pool = NewNodePool(DefaultWarmNodes)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{pool: pool, registry: registry, measurer: measurer, logger: logger}
}

// Pool exposes the adapter's node pool, mainly for pool-hygiene checks.
func (a *Adapter) Pool() *NodePool {
	return a.pool
}

// ComputeLayout lays out the subtree rooted at root inside the container
// size. A NaN container dimension lets content determine it; a concrete
// value pins it exactly.
//
// The result is a flat id → frame mapping with origins relative to each
// node's parent, except that a flattenable node's offset is folded into its
// children. Every pooled handle acquired during the call is released before
// it returns. Layout failures (nil root, duplicate sibling ids) log and
// return an empty mapping rather than failing the render.
func (a *Adapter) ComputeLayout(root *tree.Node, container geometry.Size) map[string]geometry.Frame {
	frames := make(map[string]geometry.Frame)
	if root == nil {
		a.logger.Warn("layout: nil root, returning empty frames")
		return frames
	}
	if dup := findDuplicateSiblingID(root); dup != "" {
		err := &errors.VitrineError{
			Op:     "layout.Adapter.ComputeLayout",
			Kind:   errors.KindLayout,
			Err:    fmt.Errorf("duplicate sibling id %q makes handle mapping ambiguous", dup),
			NodeID: dup,
		}
		errors.Report(err)
		a.logger.Warn("layout: malformed tree", zap.Error(err))
		return frames
	}

	var acquired []Handle
	var edges []flexEdge
	defer a.releaseAll(&acquired, &edges)

	rootNode, err := a.buildFlexTree(root, &acquired, &edges)
	if err != nil {
		a.logger.Warn("layout: failed to build flex tree", zap.Error(err))
		return frames
	}

	solveMu.Lock()
	flex.CalculateLayout(rootNode, toFlexDim(container.Width), toFlexDim(container.Height), flex.DirectionLTR)
	solveMu.Unlock()

	a.readFrames(root, geometry.Point{}, frames)
	return frames
}

// flexEdge records a parent/child link in the transient flex tree so the
// nodes can be detached before being returned to the pool.
type flexEdge struct {
	parent *flex.Node
	child  *flex.Node
}

func (a *Adapter) buildFlexTree(n *tree.Node, acquired *[]Handle, edges *[]flexEdge) (*flex.Node, error) {
	handle := a.pool.Acquire()
	*acquired = append(*acquired, handle)
	flexNode, err := a.pool.Get(handle)
	if err != nil {
		return nil, err
	}
	n.SetLayoutHandle(handle)
	applyStyle(flexNode, n.Style)

	spec := a.registry.Spec(n.Kind)
	if spec.Measurable && n.ChildCount() == 0 && a.measurer != nil {
		flexNode.Context = measureContext{node: n, measurer: a.measurer}
		flexNode.SetMeasureFunc(measureFlexNode)
	}

	for i, child := range n.Children() {
		childFlex, err := a.buildFlexTree(child, acquired, edges)
		if err != nil {
			return nil, err
		}
		flexNode.InsertChild(childFlex, i)
		*edges = append(*edges, flexEdge{parent: flexNode, child: childFlex})
	}
	return flexNode, nil
}

// readFrames copies solved frames out of the flex tree into the result
// mapping, consuming each node's layout handle exactly once.
//
// fold is the accumulated offset of flattenable ancestors between this node
// and its nearest materialized ancestor. A flattened node's own
// LayoutResult keeps the pool-reported coordinates so the offset can keep
// propagating; only the mapping entry is adjusted.
func (a *Adapter) readFrames(n *tree.Node, fold geometry.Point, frames map[string]geometry.Frame) {
	handle, ok := n.TakeLayoutHandle().(Handle)
	if !ok {
		return
	}
	flexNode, err := a.pool.Get(handle)
	if err != nil {
		a.logger.Warn("layout: lost handle during readback", zap.String("node", n.ID), zap.Error(err))
		return
	}
	raw := geometry.Frame{
		X:      float64(flexNode.LayoutGetLeft()),
		Y:      float64(flexNode.LayoutGetTop()),
		Width:  float64(flexNode.LayoutGetWidth()),
		Height: float64(flexNode.LayoutGetHeight()),
	}
	n.LayoutResult = raw
	frames[n.ID] = raw.Offset(fold)

	childFold := geometry.Point{}
	if n.Flattenable(a.registry) {
		childFold = frames[n.ID].Origin()
	}
	for _, child := range n.Children() {
		a.readFrames(child, childFold, frames)
	}
}

// releaseAll detaches every transient flex edge and returns every acquired
// handle to the pool, leaving the pool balanced even on failure paths.
func (a *Adapter) releaseAll(acquired *[]Handle, edges *[]flexEdge) {
	for i := len(*edges) - 1; i >= 0; i-- {
		e := (*edges)[i]
		e.parent.RemoveChild(e.child)
	}
	for _, h := range *acquired {
		if err := a.pool.Release(h); err != nil {
			a.logger.Error("layout: double release detected", zap.Error(err))
		}
	}
	*acquired = nil
	*edges = nil
}

// measureContext carries what the flex measure callback needs through the
// engine's opaque context slot.
type measureContext struct {
	node     *tree.Node
	measurer host.Measurer
}

// measureFlexNode bridges the engine's measure invocation to the Measurer
// collaborator. It runs on whichever goroutine triggered the layout pass.
func measureFlexNode(node *flex.Node, width float32, widthMode flex.MeasureMode, height float32, heightMode flex.MeasureMode) flex.Size {
	ctx, ok := node.Context.(measureContext)
	if !ok {
		return flex.Size{}
	}
	size := ctx.measurer.Measure(ctx.node, host.MeasureConstraints{
		Width:      float64(width),
		WidthMode:  toHostMode(widthMode),
		Height:     float64(height),
		HeightMode: toHostMode(heightMode),
	})
	return flex.Size{Width: float32(size.Width), Height: float32(size.Height)}
}

func toHostMode(mode flex.MeasureMode) host.MeasureMode {
	switch mode {
	case flex.MeasureModeExactly:
		return host.MeasureExactly
	case flex.MeasureModeAtMost:
		return host.MeasureAtMost
	default:
		return host.MeasureUnconstrained
	}
}

// findDuplicateSiblingID returns the first node id that appears twice under
// one parent, or "" when the tree is well formed.
func findDuplicateSiblingID(root *tree.Node) string {
	dup := ""
	root.Walk(func(n *tree.Node) bool {
		if dup != "" {
			return false
		}
		seen := make(map[string]struct{}, n.ChildCount())
		for _, child := range n.Children() {
			if _, exists := seen[child.ID]; exists {
				dup = child.ID
				return false
			}
			seen[child.ID] = struct{}{}
		}
		return true
	})
	return dup
}

func toFlexDim(v float64) float32 {
	if math.IsNaN(v) {
		return flex.Undefined
	}
	return float32(v)
}

// applyStyle copies the entire style model onto a pooled flex node. Every
// field is written unconditionally so nothing from the previous checkout
// can leak through.
func applyStyle(n *flex.Node, s style.Style) {
	setDimension(s.Width,
		func(v float32) { n.StyleSetWidth(v) },
		func(v float32) { n.StyleSetWidthPercent(v) },
		func() { n.StyleSetWidthAuto() })
	setDimension(s.Height,
		func(v float32) { n.StyleSetHeight(v) },
		func(v float32) { n.StyleSetHeightPercent(v) },
		func() { n.StyleSetHeightAuto() })
	setBound(s.MinWidth,
		func(v float32) { n.StyleSetMinWidth(v) },
		func(v float32) { n.StyleSetMinWidthPercent(v) })
	setBound(s.MinHeight,
		func(v float32) { n.StyleSetMinHeight(v) },
		func(v float32) { n.StyleSetMinHeightPercent(v) })
	setBound(s.MaxWidth,
		func(v float32) { n.StyleSetMaxWidth(v) },
		func(v float32) { n.StyleSetMaxWidthPercent(v) })
	setBound(s.MaxHeight,
		func(v float32) { n.StyleSetMaxHeight(v) },
		func(v float32) { n.StyleSetMaxHeightPercent(v) })

	setEdges(s.Margin, func(edge flex.Edge, d style.Dimension) {
		switch d.Unit {
		case style.UnitPoint:
			n.StyleSetMargin(edge, float32(d.Value))
		case style.UnitPercent:
			n.StyleSetMarginPercent(edge, float32(d.Value))
		case style.UnitAuto:
			n.StyleSetMarginAuto(edge)
		default:
			n.StyleSetMargin(edge, flex.Undefined)
		}
	})
	setEdges(s.Padding, func(edge flex.Edge, d style.Dimension) {
		switch d.Unit {
		case style.UnitPoint:
			n.StyleSetPadding(edge, float32(d.Value))
		case style.UnitPercent:
			n.StyleSetPaddingPercent(edge, float32(d.Value))
		default:
			n.StyleSetPadding(edge, flex.Undefined)
		}
	})

	n.StyleSetFlexGrow(float32(s.FlexGrow))
	n.StyleSetFlexShrink(float32(s.FlexShrink))
	switch s.FlexBasis.Unit {
	case style.UnitPoint:
		n.StyleSetFlexBasis(float32(s.FlexBasis.Value))
	case style.UnitPercent:
		n.StyleSetFlexBasisPercent(float32(s.FlexBasis.Value))
	default:
		flex.NodeStyleSetFlexBasisAuto(n)
	}

	n.StyleSetFlexDirection(toFlexDirection(s.Direction))
	n.StyleSetFlexWrap(toFlexWrap(s.Wrap))
	n.StyleSetJustifyContent(toFlexJustify(s.Justify))
	n.StyleSetAlignItems(toFlexAlign(s.AlignItems, flex.AlignStretch))
	n.StyleSetAlignSelf(toFlexAlign(s.AlignSelf, flex.AlignAuto))
	n.StyleSetAlignContent(toFlexAlign(s.AlignContent, flex.AlignFlexStart))

	if s.Position == style.Absolute {
		n.StyleSetPositionType(flex.PositionTypeAbsolute)
	} else {
		n.StyleSetPositionType(flex.PositionTypeRelative)
	}
	setEdges(s.Inset, func(edge flex.Edge, d style.Dimension) {
		switch d.Unit {
		case style.UnitPoint:
			n.StyleSetPosition(edge, float32(d.Value))
		case style.UnitPercent:
			n.StyleSetPositionPercent(edge, float32(d.Value))
		default:
			n.StyleSetPosition(edge, flex.Undefined)
		}
	})

	if s.Hidden() {
		n.StyleSetDisplay(flex.DisplayNone)
	} else {
		n.StyleSetDisplay(flex.DisplayFlex)
	}

	if s.AspectRatio > 0 {
		n.StyleSetAspectRatio(float32(s.AspectRatio))
	} else {
		n.StyleSetAspectRatio(flex.Undefined)
	}
}

func setDimension(d style.Dimension, point, percent func(float32), auto func()) {
	switch d.Unit {
	case style.UnitPoint:
		point(float32(d.Value))
	case style.UnitPercent:
		percent(float32(d.Value))
	default:
		auto()
	}
}

func setBound(d style.Dimension, point, percent func(float32)) {
	switch d.Unit {
	case style.UnitPoint:
		point(float32(d.Value))
	case style.UnitPercent:
		percent(float32(d.Value))
	default:
		point(flex.Undefined)
	}
}

func setEdges(insets style.EdgeInsets, set func(flex.Edge, style.Dimension)) {
	set(flex.EdgeLeft, insets.Left)
	set(flex.EdgeTop, insets.Top)
	set(flex.EdgeRight, insets.Right)
	set(flex.EdgeBottom, insets.Bottom)
}

func toFlexDirection(d style.FlexDirection) flex.FlexDirection {
	switch d {
	case style.Row:
		return flex.FlexDirectionRow
	case style.RowReverse:
		return flex.FlexDirectionRowReverse
	case style.ColumnReverse:
		return flex.FlexDirectionColumnReverse
	default:
		return flex.FlexDirectionColumn
	}
}

func toFlexWrap(w style.Wrap) flex.Wrap {
	switch w {
	case style.WrapLines:
		return flex.WrapWrap
	case style.WrapReverse:
		return flex.WrapWrapReverse
	default:
		return flex.WrapNoWrap
	}
}

func toFlexJustify(j style.Justify) flex.Justify {
	switch j {
	case style.JustifyCenter:
		return flex.JustifyCenter
	case style.JustifyEnd:
		return flex.JustifyFlexEnd
	case style.JustifySpaceBetween:
		return flex.JustifySpaceBetween
	case style.JustifySpaceAround:
		return flex.JustifySpaceAround
	default:
		return flex.JustifyFlexStart
	}
}

func toFlexAlign(a style.Align, fallback flex.Align) flex.Align {
	switch a {
	case style.AlignStart:
		return flex.AlignFlexStart
	case style.AlignCenter:
		return flex.AlignCenter
	case style.AlignEnd:
		return flex.AlignFlexEnd
	case style.AlignStretch:
		return flex.AlignStretch
	case style.AlignBaseline:
		return flex.AlignBaseline
	case style.AlignSpaceBetween:
		return flex.AlignSpaceBetween
	case style.AlignSpaceAround:
		return flex.AlignSpaceAround
	case style.AlignAuto:
		return fallback
	default:
		return fallback
	}
}
