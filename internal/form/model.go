package form

import "slices"

// Kind classifies a field the way the pipeline cares about it.
type Kind int

const (
	KindOther Kind = iota
	KindHidden
	KindCheckbox
)

func (k Kind) String() string {
	switch k {
	case KindHidden:
		return "hidden"
	case KindCheckbox:
		return "checkbox"
	default:
		return "other"
	}
}

// Field is one named control of a form, in document order.
type Field struct {
	Name  string
	Value string
	Kind  Kind
	// Type is the lower-cased input type ("text", "radio", "submit", ...) or
	// the tag name for select and textarea controls.
	Type     string
	Checked  bool
	Disabled bool
	// Address is set on block-flag entries only.
	Address string
	// Marker is the annotation rendered next to a block flag, such as "[B]".
	Marker string
}

// IsBlockFlag reports whether the field is a member's block-flag checkbox.
func (f Field) IsBlockFlag() bool {
	return f.Kind == KindCheckbox && f.Address != ""
}

// Form is one HTML form with its fields in document order, duplicates kept.
type Form struct {
	Action string
	Method string
	Fields []Field
}

// Clone returns a deep copy of the form.
func (f Form) Clone() Form {
	f.Fields = slices.Clone(f.Fields)
	return f
}

// Has reports whether any field carries the given name.
func (f Form) Has(name string) bool {
	for _, field := range f.Fields {
		if field.Name == name {
			return true
		}
	}
	return false
}

// Model is the parsed form content of one page.
type Model struct {
	Forms []Form
	// Member is the index of the member-management form, or -1.
	Member int
	// Text is the whitespace-collapsed visible text of the page.
	Text string
}

// MemberForm returns the member-management form.
func (m *Model) MemberForm() (Form, bool) {
	if m == nil || m.Member < 0 || m.Member >= len(m.Forms) {
		return Form{}, false
	}
	return m.Forms[m.Member], true
}

// FlagState is a member's delivery state as rendered on one page.
type FlagState int

const (
	Clear FlagState = iota
	Blocked
	BounceDisabled
)

func (s FlagState) String() string {
	switch s {
	case Blocked:
		return "blocked"
	case BounceDisabled:
		return "bounce-disabled"
	default:
		return "clear"
	}
}

// States derives the flag state of every member on the member form. When an
// address has several block-flag entries the most restrictive state wins.
func (m *Model) States(conv Convention) map[string]FlagState {
	states := make(map[string]FlagState)
	form, ok := m.MemberForm()
	if !ok {
		return states
	}
	for _, field := range form.Fields {
		if !field.IsBlockFlag() {
			continue
		}
		state := conv.StateOf(field)
		if current, seen := states[field.Address]; !seen || state > current {
			states[field.Address] = state
		}
	}
	return states
}

// Members returns member addresses in document order, without duplicates.
func (m *Model) Members() []string {
	form, ok := m.MemberForm()
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, field := range form.Fields {
		if !field.IsBlockFlag() {
			continue
		}
		if _, dup := seen[field.Address]; dup {
			continue
		}
		seen[field.Address] = struct{}{}
		out = append(out, field.Address)
	}
	return out
}
