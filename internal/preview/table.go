package preview

import (
	"fmt"
	"sort"
)

// Table defaults.
const (
	DefaultMaxLevel     = 5
	DefaultDividerLevel = 2

	// MaxLevelLimit is the deepest table that will be built.
	MaxLevelLimit = 50
)

const placeholderRowClass = "placeholder-row"

// TableOptions bounds the grouped table. Non-positive values take defaults
// and MaxLevel is clamped to MaxLevelLimit.
type TableOptions struct {
	MaxLevel     int `json:"maxLevel"`
	DividerLevel int `json:"dividerLevel"`
}

func (o TableOptions) withDefaults() TableOptions {
	if o.MaxLevel <= 0 {
		o.MaxLevel = DefaultMaxLevel
	}
	if o.MaxLevel > MaxLevelLimit {
		o.MaxLevel = MaxLevelLimit
	}
	if o.DividerLevel <= 0 {
		o.DividerLevel = DefaultDividerLevel
	}
	return o
}

// TableRow is a display row of the grouped table. Placeholder rows only
// exist to equalise row counts across chains and carry no step data.
type TableRow struct {
	Key            string   `json:"key"`
	Chain          string   `json:"Chain"`
	Level          int      `json:"Level"`
	Order          *float64 `json:"Order"`
	ApproverName   string   `json:"ApproverName"`
	Title          string   `json:"Title"`
	Status         string   `json:"Status"`
	Notes          string   `json:"Notes"`
	URL            string   `json:"URL"`
	URLLabel       string   `json:"URLLabel"`
	LiveApprovalID string   `json:"LiveApprovalId"`
	ApprovalRuleID string   `json:"ApprovalRuleId"`
	Placeholder    bool     `json:"_placeholder"`
	RowClass       string   `json:"_rowClass"`
}

// LevelBlock is one level of a chain column.
type LevelBlock struct {
	Level     int        `json:"level"`
	Rows      []TableRow `json:"rows"`
	RowsCount int        `json:"rowsCount"`
	Divider   bool       `json:"divider"`
}

// ChainColumn is a chain with its fixed range of level blocks.
type ChainColumn struct {
	Key    string       `json:"key"`
	Levels []LevelBlock `json:"levels"`
}

// GroupedTable is the chain-grouped grid plus its flattened row list.
type GroupedTable struct {
	Chains []ChainColumn `json:"chains"`
	Rows   []TableRow    `json:"rows"`
}

// BuildGroupedTable groups records by chain, buckets each chain into levels
// 1..MaxLevel, pads every level to the same row count across chains and
// flattens the result chain → level → row. Records whose level falls outside
// the range are left out of this view.
func BuildGroupedTable(records []ApprovalStepRecord, opts TableOptions) GroupedTable {
	opts = opts.withDefaults()

	order := make([]string, 0)
	byChain := make(map[string][]ApprovalStepRecord)
	for _, r := range records {
		name := r.ChainName()
		if _, ok := byChain[name]; !ok {
			order = append(order, name)
		}
		byChain[name] = append(byChain[name], r)
	}

	chains := make([]ChainColumn, 0, len(order))
	for _, name := range order {
		items := byChain[name]
		sort.SliceStable(items, func(i, j int) bool {
			oi, oj := items[i].Order.Float(), items[j].Order.Float()
			if oi != oj {
				return oi < oj
			}
			return items[i].LevelValue() < items[j].LevelValue()
		})

		byLevel := make(map[float64][]ApprovalStepRecord)
		for _, it := range items {
			lvl := it.LevelValue()
			byLevel[lvl] = append(byLevel[lvl], it)
		}

		levels := make([]LevelBlock, 0, opts.MaxLevel)
		for lvl := 1; lvl <= opts.MaxLevel; lvl++ {
			atLevel := byLevel[float64(lvl)]
			rows := make([]TableRow, len(atLevel))
			for idx, it := range atLevel {
				rows[idx] = newTableRow(name, lvl, idx, it)
			}
			levels = append(levels, LevelBlock{
				Level:     lvl,
				Rows:      rows,
				RowsCount: len(rows),
				Divider:   lvl == opts.DividerLevel,
			})
		}
		chains = append(chains, ChainColumn{Key: name, Levels: levels})
	}

	sort.SliceStable(chains, func(i, j int) bool {
		return firstOrder(chains[i]) < firstOrder(chains[j])
	})

	padLevels(chains)

	rows := make([]TableRow, 0)
	for _, ch := range chains {
		for _, block := range ch.Levels {
			rows = append(rows, block.Rows...)
		}
	}

	return GroupedTable{Chains: chains, Rows: rows}
}

// firstOrder is the order of the first row in the chain's first non-empty
// level, or 0 for a chain without rows.
func firstOrder(ch ChainColumn) float64 {
	for _, block := range ch.Levels {
		if len(block.Rows) == 0 {
			continue
		}
		if o := block.Rows[0].Order; o != nil {
			return *o
		}
		return 0
	}
	return 0
}

// padLevels appends placeholder rows so that at every level each chain has
// as many rows as the longest chain at that level.
func padLevels(chains []ChainColumn) {
	maxPerLevel := make(map[int]int)
	for _, ch := range chains {
		for _, block := range ch.Levels {
			if len(block.Rows) > maxPerLevel[block.Level] {
				maxPerLevel[block.Level] = len(block.Rows)
			}
		}
	}

	for c := range chains {
		for b := range chains[c].Levels {
			block := &chains[c].Levels[b]
			missing := maxPerLevel[block.Level] - len(block.Rows)
			for i := 0; i < missing; i++ {
				block.Rows = append(block.Rows, TableRow{
					Key:         fmt.Sprintf("placeholder-%s-%d-%d", chains[c].Key, block.Level, i),
					Chain:       chains[c].Key,
					Level:       block.Level,
					Placeholder: true,
					RowClass:    placeholderRowClass,
				})
			}
			block.RowsCount = len(block.Rows)
		}
	}
}

func newTableRow(chain string, level, idx int, r ApprovalStepRecord) TableRow {
	key := r.ID
	if key == "" {
		key = fmt.Sprintf("%d-%d", level, idx)
	}

	var order *float64
	if o := r.Order.Float(); o != 0 {
		order = &o
	}

	approver := r.ApproverName
	if approver == "" {
		approver = r.Approver
	}
	title := r.Title
	if title == "" {
		title = r.ApproverTitle
	}

	label := r.Notes
	if r.URL != "" {
		label = "Link"
	}

	return TableRow{
		Key:            key,
		Chain:          chain,
		Level:          level,
		Order:          order,
		ApproverName:   approver,
		Title:          title,
		Status:         r.Status,
		Notes:          r.Notes,
		URL:            r.URL,
		URLLabel:       label,
		LiveApprovalID: r.LiveApprovalID,
		ApprovalRuleID: r.ApprovalRuleID,
	}
}

// RowsAtLevel counts a chain's rows (placeholders included) at level.
func (c ChainColumn) RowsAtLevel(level int) int {
	for _, block := range c.Levels {
		if block.Level == level {
			return len(block.Rows)
		}
	}
	return 0
}
