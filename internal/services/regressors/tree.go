package regressors

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrNotFitted   = errors.New("regressor not fitted")
	ErrEmptyInput  = errors.New("empty training input")
	ErrShape       = errors.New("inconsistent input shape")
	ErrNonFinite   = errors.New("non-finite input value")
	errNoSplitRows = errors.New("no rows to grow from")
)

// TreeConfig controls how a single regression tree is grown.
type TreeConfig struct {
	// MaxDepth limits depth. Zero means unlimited.
	MaxDepth int
	// MaxLeaves switches to best-first (leaf-wise) growth when positive.
	MaxLeaves      int
	MinSamplesLeaf int
	// Lambda is the L2 penalty on leaf values.
	Lambda float64
}

type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	leaf      bool
}

// Tree is a fitted CART regression tree.
type Tree struct {
	nodes []node
	width int
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

type candidate struct {
	id    int
	rows  []int
	depth int
	best  *split
}

// growTree fits a tree on X[rows] against targets, considering only the given
// feature columns. Rows may repeat (bootstrap samples).
func growTree(X [][]float64, targets []float64, rows []int, feats []int, cfg TreeConfig) (*Tree, error) {
	if len(rows) == 0 {
		return nil, errNoSplitRows
	}
	minLeaf := cfg.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}
	t := &Tree{width: len(X[0])}

	newLeaf := func(rs []int) int {
		var s float64
		for _, r := range rs {
			s += targets[r]
		}
		t.nodes = append(t.nodes, node{leaf: true, value: s / (float64(len(rs)) + cfg.Lambda)})
		return len(t.nodes) - 1
	}
	canGrow := func(depth int) bool {
		return cfg.MaxDepth <= 0 || depth < cfg.MaxDepth
	}

	mk := func(rs []int, depth int) *candidate {
		c := &candidate{id: newLeaf(rs), rows: rs, depth: depth}
		if canGrow(depth) {
			c.best = bestSplit(X, targets, rs, feats, minLeaf, cfg.Lambda)
		}
		return c
	}

	frontier := []*candidate{mk(rows, 0)}
	leaves := 1
	for len(frontier) > 0 {
		if cfg.MaxLeaves > 0 && leaves >= cfg.MaxLeaves {
			break
		}
		idx := 0
		if cfg.MaxLeaves > 0 {
			// best-first: expand the leaf with the largest gain
			idx = -1
			for i, c := range frontier {
				if c.best == nil {
					continue
				}
				if idx < 0 || c.best.gain > frontier[idx].best.gain {
					idx = i
				}
			}
			if idx < 0 {
				break
			}
		}
		c := frontier[idx]
		frontier = append(frontier[:idx], frontier[idx+1:]...)
		if c.best == nil {
			continue
		}
		l := mk(c.best.left, c.depth+1)
		r := mk(c.best.right, c.depth+1)
		t.nodes[c.id] = node{feature: c.best.feature, threshold: c.best.threshold, left: l.id, right: r.id}
		frontier = append(frontier, l, r)
		leaves++
	}
	return t, nil
}

// bestSplit scans every candidate feature for the threshold with the largest
// reduction in penalized squared error.
func bestSplit(X [][]float64, targets []float64, rows []int, feats []int, minLeaf int, lambda float64) *split {
	n := len(rows)
	if n < 2*minLeaf {
		return nil
	}
	var total float64
	for _, r := range rows {
		total += targets[r]
	}
	parent := total * total / (float64(n) + lambda)

	var best *split
	sorted := make([]int, n)
	for _, f := range feats {
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool {
			a, b := X[sorted[i]][f], X[sorted[j]][f]
			if a != b {
				return a < b
			}
			return sorted[i] < sorted[j]
		})
		var left float64
		for i := 0; i < n-1; i++ {
			left += targets[sorted[i]]
			nl := i + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			lo, hi := X[sorted[i]][f], X[sorted[i+1]][f]
			if lo == hi {
				continue
			}
			right := total - left
			gain := left*left/(float64(nl)+lambda) + right*right/(float64(nr)+lambda) - parent
			if gain <= 1e-12 || (best != nil && gain <= best.gain) {
				continue
			}
			thr := lo + (hi-lo)/2
			best = &split{feature: f, threshold: thr, gain: gain}
			best.left = append([]int(nil), sorted[:nl]...)
			best.right = append([]int(nil), sorted[nl:]...)
		}
	}
	return best
}

func (t *Tree) predictRow(x []float64) float64 {
	i := 0
	for {
		nd := &t.nodes[i]
		if nd.leaf {
			return nd.value
		}
		if x[nd.feature] <= nd.threshold {
			i = nd.left
		} else {
			i = nd.right
		}
	}
}

// Leaves counts terminal nodes.
func (t *Tree) Leaves() int {
	n := 0
	for _, nd := range t.nodes {
		if nd.leaf {
			n++
		}
	}
	return n
}

// Depth is the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		nd := t.nodes[i]
		if nd.leaf {
			return 0
		}
		return 1 + max(walk(nd.left), walk(nd.right))
	}
	return walk(0)
}

// DecisionTree is a standalone CART regressor over all features.
type DecisionTree struct {
	cfg  TreeConfig
	tree *Tree
}

func NewDecisionTree(cfg TreeConfig) *DecisionTree {
	return &DecisionTree{cfg: cfg}
}

func (d *DecisionTree) Fit(X [][]float64, y []float64) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	t, err := growTree(X, y, seq(len(y)), seq(len(X[0])), d.cfg)
	if err != nil {
		return err
	}
	d.tree = t
	return nil
}

func (d *DecisionTree) Predict(X [][]float64) ([]float64, error) {
	if d.tree == nil {
		return nil, ErrNotFitted
	}
	if err := validateRows(X, d.tree.width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = d.tree.predictRow(x)
	}
	return out, nil
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func validateTraining(X [][]float64, y []float64) error {
	if len(X) == 0 || len(y) == 0 {
		return ErrEmptyInput
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d targets", ErrShape, len(X), len(y))
	}
	if len(X[0]) == 0 {
		return fmt.Errorf("%w: zero-width rows", ErrShape)
	}
	if err := validateRows(X, len(X[0])); err != nil {
		return err
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: target %d", ErrNonFinite, i)
		}
	}
	return nil
}

func validateRows(X [][]float64, width int) error {
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(row), width)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d column %d", ErrNonFinite, i, j)
			}
		}
	}
	return nil
}
