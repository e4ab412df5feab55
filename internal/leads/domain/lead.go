package domain

import "time"

// Lead is a CRM contact as read by the engine. Fields is the free-form
// custom-field map and may carry legacy key names; read it through Canonicalize.
type Lead struct {
	ID               string
	FirstName        string
	LastName         string
	Phone            string
	Email            string
	Tags             []string
	Fields           map[string]string
	PipelineStage    string
	AssignedArtistID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DisplayName is the first name, or a neutral greeting target.
func (l Lead) DisplayName() string {
	if l.FirstName != "" {
		return l.FirstName
	}
	return "there"
}

// HasTag reports whether the lead carries tag (case-sensitive).
func (l Lead) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FieldUpdate is one atomic write of custom fields. Set wins over Clear for the
// same key.
type FieldUpdate struct {
	Set           map[string]string
	Clear         []string
	AddTags       []string
	PipelineStage string
}

// NewFieldUpdate returns an empty update ready for Put/Drop.
func NewFieldUpdate() *FieldUpdate {
	return &FieldUpdate{Set: map[string]string{}}
}

// Put sets key to value.
func (u *FieldUpdate) Put(key, value string) *FieldUpdate {
	u.Set[key] = value
	return u
}

// Drop removes key and every legacy alias of it.
func (u *FieldUpdate) Drop(keys ...string) *FieldUpdate {
	for _, key := range keys {
		u.Clear = append(u.Clear, key)
		u.Clear = append(u.Clear, FieldAliases(key)...)
	}
	return u
}

// Empty reports whether applying u would change nothing.
func (u *FieldUpdate) Empty() bool {
	return len(u.Set) == 0 && len(u.Clear) == 0 && len(u.AddTags) == 0 && u.PipelineStage == ""
}

// Apply returns a copy of fields with u applied. Stores use it to keep
// in-memory copies consistent with what they persisted.
func (u *FieldUpdate) Apply(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields)+len(u.Set))
	for k, v := range fields {
		out[k] = v
	}
	for _, k := range u.Clear {
		delete(out, k)
	}
	for k, v := range u.Set {
		out[k] = v
	}
	return out
}
