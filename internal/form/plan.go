package form

// MutationPlan is the minimal diff that unblocks members on one page: the
// listed block-flag entries are unchecked and nothing else changes.
type MutationPlan struct {
	// Form indexes Model.Forms.
	Form int
	// Clear indexes Form.Fields; entries appear in document order.
	Clear []int
	// Addresses are the affected members in document order, de-duplicated.
	Addresses []string
}

// Empty reports whether the plan changes nothing.
func (p MutationPlan) Empty() bool {
	return len(p.Clear) == 0
}

// Plan selects every block-flag entry that is an administrative block.
// Clear members are untouched and bounce-disabled members are left to the
// bounce workflow.
func Plan(model *Model, conv Convention) (MutationPlan, []string) {
	plan := MutationPlan{Form: -1}
	form, ok := model.MemberForm()
	if !ok {
		return plan, nil
	}
	plan.Form = model.Member
	seen := make(map[string]struct{})
	for i, field := range form.Fields {
		if !field.IsBlockFlag() || conv.StateOf(field) != Blocked {
			continue
		}
		plan.Clear = append(plan.Clear, i)
		if _, dup := seen[field.Address]; dup {
			continue
		}
		seen[field.Address] = struct{}{}
		plan.Addresses = append(plan.Addresses, field.Address)
	}
	return plan, plan.Addresses
}

// Apply returns a copy of the planned form with the selected entries
// unchecked. The model itself is not modified.
func (p MutationPlan) Apply(model *Model) Form {
	if p.Form < 0 || p.Form >= len(model.Forms) {
		return Form{}
	}
	out := model.Forms[p.Form].Clone()
	for _, idx := range p.Clear {
		if idx >= 0 && idx < len(out.Fields) {
			out.Fields[idx].Checked = false
		}
	}
	return out
}
