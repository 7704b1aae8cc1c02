package question

import "strings"

// ShapeClones drops clones without generated content and maps the rest to
// response views, keeping backend order.
func ShapeClones(clones []Clone) []CloneView {
	views := make([]CloneView, 0, len(clones))
	for _, c := range clones {
		if strings.TrimSpace(c.Body) == "" {
			continue
		}
		model := c.Model
		if model == "" {
			model = DefaultModelLabel
		}
		views = append(views, CloneView{
			Clone:            c.Body,
			Model:            model,
			OriginalQuestion: c.Reference.String(),
		})
	}
	return views
}

// worksheetClones maps clone rows onto worksheet entries. originals resolves
// record-id references; textual references are parsed directly.
func worksheetClones(clones []Clone, originals map[string]Key) []WorksheetItem {
	items := make([]WorksheetItem, 0, len(clones))
	for _, c := range clones {
		if strings.TrimSpace(c.Body) == "" {
			continue
		}
		ref := c.Reference.String()
		key, ok := ParseCanonicalReference(ref)
		if !ok {
			for _, v := range c.Reference.Values {
				if k, found := originals[v]; found {
					key, ok = k, true
					break
				}
			}
		}
		if !ok {
			key = Key{TestNumber: ref}
		}
		items = append(items, WorksheetItem{
			ID:               c.ID,
			LatexMarkdown:    c.Body,
			TestNumber:       "Clone of " + key.TestNumber,
			QuestionNumber:   key.QuestionNumber,
			IsClone:          true,
			OriginalQuestion: ref,
		})
	}
	return items
}
