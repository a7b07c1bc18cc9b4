package preview

// Enricher derives the per-record display values of a load.
type Enricher struct {
	colors       *ColorResolver
	iconBasePath string
}

// NewEnricher creates an Enricher.
func NewEnricher(colors *ColorResolver, iconBasePath string) *Enricher {
	return &Enricher{colors: colors, iconBasePath: iconBasePath}
}

// Enrich returns one EnrichedRecord per input record, in input order. It never
// filters. Answers start empty and are filled by JoinAnswers.
func (e *Enricher) Enrich(records []ApprovalStepRecord) []EnrichedRecord {
	out := make([]EnrichedRecord, len(records))
	for i, r := range records {
		out[i] = EnrichedRecord{
			ApprovalStepRecord: r,
			Key:                CompositeKey(r),
			Avatar:             ResolveAvatar(r.AvatarURL, e.iconBasePath),
			StatusColor:        e.colors.Resolve(r.Status),
			Answers:            []AnswerRecord{},
		}
	}
	return out
}

// CompositeKey identifies a step within a load: "{rule or id}-{slot or 0}".
func CompositeKey(r ApprovalStepRecord) string {
	id := r.ApprovalRuleID
	if id == "" {
		id = r.ID
	}
	slot := r.Slot.Raw()
	if slot == "" {
		slot = "0"
	}
	return id + "-" + slot
}
