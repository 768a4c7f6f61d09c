package form

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const controlSelector = "input, select, textarea"

// Parse reads every form on the page. Unlike Extract it does not require a
// member-management form, so it also serves login and options pages.
func Parse(html []byte, conv Convention) (*Model, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &ParseError{Reason: "invalid html", Err: err}
	}

	model := &Model{Member: -1}
	doc.Find("form").Each(func(i int, sel *goquery.Selection) {
		form := Form{
			Action: strings.TrimSpace(sel.AttrOr("action", "")),
			Method: strings.ToUpper(strings.TrimSpace(sel.AttrOr("method", "GET"))),
		}
		sel.Find(controlSelector).Each(func(_ int, ctl *goquery.Selection) {
			form.Fields = append(form.Fields, controlFields(ctl, conv)...)
		})
		if model.Member < 0 && isMemberForm(form, conv) {
			model.Member = len(model.Forms)
		}
		model.Forms = append(model.Forms, form)
	})
	model.Text = strings.Join(strings.Fields(doc.Text()), " ")
	return model, nil
}

// Extract parses a directory page and requires a member-management form. A
// recognised form that lists no members is a valid, empty model.
func Extract(html []byte, conv Convention) (*Model, error) {
	model, err := Parse(html, conv)
	if err != nil {
		return nil, err
	}
	if model.Member < 0 {
		return nil, &ParseError{Reason: "no member-management form found"}
	}
	return model, nil
}

func isMemberForm(form Form, conv Convention) bool {
	for _, field := range form.Fields {
		if field.IsBlockFlag() || conv.IsMarker(field.Name) {
			return true
		}
	}
	return false
}

// controlFields converts one control into its fields. Nameless controls never
// submit and are dropped; a multiple select yields one field per selected option.
func controlFields(ctl *goquery.Selection, conv Convention) []Field {
	name, ok := ctl.Attr("name")
	if !ok || name == "" {
		return nil
	}
	_, disabled := ctl.Attr("disabled")
	tag := goquery.NodeName(ctl)

	switch tag {
	case "select":
		return selectFields(ctl, name, disabled)
	case "textarea":
		return []Field{{Name: name, Value: ctl.Text(), Kind: KindOther, Type: "textarea", Disabled: disabled}}
	}

	inputType := strings.ToLower(strings.TrimSpace(ctl.AttrOr("type", "text")))
	_, checked := ctl.Attr("checked")
	field := Field{
		Name:     name,
		Value:    ctl.AttrOr("value", ""),
		Type:     inputType,
		Checked:  checked,
		Disabled: disabled,
	}
	switch inputType {
	case "hidden":
		field.Kind = KindHidden
	case "checkbox":
		field.Kind = KindCheckbox
		if addr, ok := conv.BlockFlag(name); ok {
			field.Address = addr
			field.Marker = markerText(ctl)
		}
	default:
		field.Kind = KindOther
	}
	return []Field{field}
}

func selectFields(ctl *goquery.Selection, name string, disabled bool) []Field {
	_, multiple := ctl.Attr("multiple")
	options := ctl.Find("option")
	selected := options.FilterFunction(func(_ int, opt *goquery.Selection) bool {
		_, ok := opt.Attr("selected")
		return ok
	})
	if selected.Length() == 0 && !multiple && options.Length() > 0 {
		selected = options.First()
	}
	if !multiple && selected.Length() > 1 {
		selected = selected.Last()
	}
	var fields []Field
	selected.Each(func(_ int, opt *goquery.Selection) {
		value, ok := opt.Attr("value")
		if !ok {
			value = strings.TrimSpace(opt.Text())
		}
		fields = append(fields, Field{Name: name, Value: value, Kind: KindOther, Type: "select", Disabled: disabled, Checked: true})
	})
	return fields
}

// markerText returns the annotation rendered in the same table cell as the
// control, such as "[B]".
func markerText(ctl *goquery.Selection) string {
	cell := ctl.Closest("td")
	if cell.Length() == 0 {
		cell = ctl.Parent()
	}
	return strings.Join(strings.Fields(cell.Text()), " ")
}
