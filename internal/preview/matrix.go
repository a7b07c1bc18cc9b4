package preview

import (
	"fmt"
	"sort"
)

// Chain is a matrix column. Key is "chain-{n}" where n is the order of first
// appearance in the input.
type Chain struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// MatrixItem is one approval step rendered inside a cell.
type MatrixItem struct {
	Key            string         `json:"_key"`
	Title          string         `json:"title"`
	ApproverName   string         `json:"approverName"`
	Avatar         string         `json:"avatar"`
	Slot           Number         `json:"slot"`
	Status         string         `json:"status"`
	StatusColor    string         `json:"statusColor"`
	CardStyle      string         `json:"cardStyle"`
	IndicatorStyle string         `json:"indicatorStyle"`
	Answers        []AnswerRecord `json:"approvalAnswers"`
	Raw            EnrichedRecord `json:"_raw"`
}

// MatrixCell holds the items of one (level, chain) pair. Cells without items
// are still present with HasItem false.
type MatrixCell struct {
	ChainKey  string       `json:"chainKey"`
	ChainName string       `json:"chainName"`
	HasItem   bool         `json:"hasItem"`
	Items     []MatrixItem `json:"items"`
}

// MatrixRow is one level of the matrix with a cell per chain.
type MatrixRow struct {
	Level float64      `json:"level"`
	Cells []MatrixCell `json:"cells"`
}

// Matrix is the dense level × chain view.
type Matrix struct {
	Chains []Chain     `json:"chains"`
	Levels []float64   `json:"levels"`
	Rows   []MatrixRow `json:"rows"`
}

// Cell returns the cell at (level, chainName).
func (m Matrix) Cell(level float64, chainName string) (MatrixCell, bool) {
	for _, row := range m.Rows {
		if row.Level != level {
			continue
		}
		for _, cell := range row.Cells {
			if cell.ChainName == chainName {
				return cell, true
			}
		}
	}
	return MatrixCell{}, false
}

type cellKey struct {
	level float64
	chain string
}

// BuildMatrix lays records out by level (rows, ascending) and chain (columns,
// first-seen order). Every (level, chain) pair gets exactly one cell; items
// within a cell are sorted by slot, keeping input order for equal slots.
func BuildMatrix(records []EnrichedRecord) Matrix {
	chains := make([]Chain, 0)
	seenChains := make(map[string]struct{})
	levelSet := make(map[float64]struct{})
	buckets := make(map[cellKey][]EnrichedRecord)

	for _, r := range records {
		name := r.ChainName()
		if _, ok := seenChains[name]; !ok {
			seenChains[name] = struct{}{}
			chains = append(chains, Chain{Name: name, Key: fmt.Sprintf("chain-%d", len(chains))})
		}
		lvl := r.LevelValue()
		levelSet[lvl] = struct{}{}
		k := cellKey{level: lvl, chain: name}
		buckets[k] = append(buckets[k], r)
	}

	levels := make([]float64, 0, len(levelSet))
	for lvl := range levelSet {
		levels = append(levels, lvl)
	}
	sort.Float64s(levels)

	rows := make([]MatrixRow, 0, len(levels))
	for _, lvl := range levels {
		cells := make([]MatrixCell, 0, len(chains))
		for _, ch := range chains {
			matches := buckets[cellKey{level: lvl, chain: ch.Name}]
			cell := MatrixCell{ChainKey: ch.Key, ChainName: ch.Name, Items: []MatrixItem{}}
			if len(matches) > 0 {
				sorted := make([]EnrichedRecord, len(matches))
				copy(sorted, matches)
				sort.SliceStable(sorted, func(i, j int) bool {
					return sorted[i].Slot.Float() < sorted[j].Slot.Float()
				})
				cell.HasItem = true
				cell.Items = make([]MatrixItem, len(sorted))
				for i, r := range sorted {
					cell.Items[i] = newMatrixItem(r)
				}
			}
			cells = append(cells, cell)
		}
		rows = append(rows, MatrixRow{Level: lvl, Cells: cells})
	}

	return Matrix{Chains: chains, Levels: levels, Rows: rows}
}

func newMatrixItem(r EnrichedRecord) MatrixItem {
	answers := r.Answers
	if answers == nil {
		answers = []AnswerRecord{}
	}
	return MatrixItem{
		Key:            r.Key,
		Title:          r.Title,
		ApproverName:   r.ApproverName,
		Avatar:         r.Avatar,
		Slot:           r.Slot,
		Status:         r.Status,
		StatusColor:    r.StatusColor,
		CardStyle:      CardStyle(r.StatusColor),
		IndicatorStyle: IndicatorStyle(r.StatusColor),
		Answers:        answers,
		Raw:            r,
	}
}
