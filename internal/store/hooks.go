package store

import "github.com/sells-group/leadsync/internal/model"

// ApplyContactDefaults fills creation-time defaults on a contact before it
// is written: a contact created without an owner is assigned to the acting
// principal. Leads deliberately get no such default; they stay unassigned
// until routed downstream.
func ApplyContactDefaults(c *model.Contact, principal string) {
	if (c.Owner == nil || *c.Owner == "") && principal != "" {
		c.Owner = &principal
	}
}
