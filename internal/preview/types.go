// Package preview turns flat approval-step records for a quote into the
// approval matrix (level × chain) and the chain-grouped approval table.
package preview

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultChain names the chain of records that carry none.
const DefaultChain = "Default"

// Number is a loosely typed numeric field as delivered by the records API.
// It may arrive as a JSON number, a numeric or non-numeric string, or not at
// all. The raw text is kept for display and keys; Float coerces anything
// that is not a finite number to zero.
type Number struct {
	raw   string
	value float64
	ok    bool
}

// NumberOf returns a Number holding v.
func NumberOf(v int) Number {
	return Number{raw: strconv.Itoa(v), value: float64(v), ok: true}
}

// ParseNumber interprets s the way the records API delivers it.
func ParseNumber(s string) Number {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Number{raw: s}
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{raw: s}
	}
	return Number{raw: s, value: v, ok: true}
}

// Float returns the value, or 0 when missing or non-numeric.
func (n Number) Float() float64 {
	if !n.ok {
		return 0
	}
	return n.value
}

// Valid reports whether the field held a number.
func (n Number) Valid() bool { return n.ok }

// Raw returns the text as delivered. JSON numbers are kept in canonical form.
func (n Number) Raw() string { return n.raw }

// Present reports whether the field was supplied at all.
func (n Number) Present() bool { return n.raw != "" }

// Text is the canonical text of the value: the formatted number when numeric,
// otherwise the raw text ("" when missing).
func (n Number) Text() string {
	if n.ok {
		return strconv.FormatFloat(n.value, 'f', -1, 64)
	}
	return n.raw
}

// UnmarshalJSON accepts numbers, strings and null.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null" || s == "":
		*n = Number{}
	case s[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = ParseNumber(str)
	default:
		*n = ParseNumber(s)
		if n.ok {
			n.raw = n.Text()
		}
	}
	return nil
}

// MarshalJSON writes a number when numeric, the raw string otherwise, and
// null when missing.
func (n Number) MarshalJSON() ([]byte, error) {
	switch {
	case n.ok:
		return []byte(n.Text()), nil
	case n.raw == "":
		return []byte("null"), nil
	default:
		return json.Marshal(n.raw)
	}
}

// ApprovalStepRecord is one flattened approval step of a quote as returned by
// the records source. Field names follow the records API.
type ApprovalStepRecord struct {
	ID             string `json:"Id"`
	LiveApprovalID string `json:"LiveApprovalId,omitempty"`
	ApprovalRuleID string `json:"ApprovalRuleId,omitempty"`
	Slot           Number `json:"ApprovalRuleSlot"`
	Chain          string `json:"Chain,omitempty"`
	Level          Number `json:"Level"`
	Order          Number `json:"Order"`
	ApproverName   string `json:"ApproverName,omitempty"`
	Approver       string `json:"Approver,omitempty"`
	Title          string `json:"Title,omitempty"`
	ApproverTitle  string `json:"Approver_Title,omitempty"`
	Status         string `json:"Status,omitempty"`
	URL            string `json:"URL,omitempty"`
	Notes          string `json:"Notes,omitempty"`
	AvatarURL      string `json:"AvatarUrl,omitempty"`
}

// ChainName returns the record's chain, or DefaultChain when empty.
func (r ApprovalStepRecord) ChainName() string {
	if r.Chain == "" {
		return DefaultChain
	}
	return r.Chain
}

// LevelValue returns the record's level; missing or non-numeric is 0.
func (r ApprovalStepRecord) LevelValue() float64 {
	return r.Level.Float()
}

// AnswerRecord is an answer attached to an approval rule for a quote.
type AnswerRecord struct {
	ID             string     `json:"Id"`
	ApprovalRuleID string     `json:"ApprovalRuleId,omitempty"`
	Question       string     `json:"Question,omitempty"`
	Answer         string     `json:"Answer,omitempty"`
	AnsweredBy     string     `json:"AnsweredBy,omitempty"`
	AnsweredAt     *time.Time `json:"AnsweredAt,omitempty"`
}

// EnrichedRecord is an ApprovalStepRecord plus the values derived once per
// load: composite key, avatar, status color and joined answers.
type EnrichedRecord struct {
	ApprovalStepRecord
	Key         string         `json:"_key"`
	Avatar      string         `json:"_avatar"`
	StatusColor string         `json:"_statusColor"`
	Answers     []AnswerRecord `json:"_approvalAnswers"`
}

// DecodeRecords parses a JSON array of approval step records.
func DecodeRecords(data []byte) ([]ApprovalStepRecord, error) {
	var records []ApprovalStepRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
