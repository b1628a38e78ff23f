package authz

import (
	"fmt"
	"strings"
)

// Action and Subject form the fixed capability vocabulary. Both the
// evaluator and the UI-facing capability listing consult this one catalog;
// nothing else in the codebase spells permission strings by hand.
type Action string

const (
	ActionView   Action = "VIEW"
	ActionCreate Action = "CREATE"
	ActionEdit   Action = "EDIT"
	ActionDelete Action = "DELETE"
)

type Subject string

const (
	SubjectDocuments Subject = "DOCUMENTS"
	SubjectReports   Subject = "REPORTS"
	SubjectInvoices  Subject = "INVOICES"
)

// Capability is one {action, subject} pair from the catalog.
type Capability struct {
	Action  Action  `json:"action"`
	Subject Subject `json:"subject"`
}

// Key renders the wire form, e.g. "EDIT:DOCUMENTS".
func (c Capability) Key() string {
	return string(c.Action) + ":" + string(c.Subject)
}

var actions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}
var subjects = []Subject{SubjectDocuments, SubjectReports, SubjectInvoices}

// Catalog returns the full immutable capability catalog.
func Catalog() []Capability {
	out := make([]Capability, 0, len(actions)*len(subjects))
	for _, s := range subjects {
		for _, a := range actions {
			out = append(out, Capability{Action: a, Subject: s})
		}
	}
	return out
}

// ProductCatalog names the fixed set of subscribable products.
var ProductCatalog = []string{"DOCUMENTS", "REPORTS", "INVOICES"}

// ParseCapability resolves a wire key against the catalog.
func ParseCapability(key string) (Capability, error) {
	parts := strings.SplitN(strings.ToUpper(strings.TrimSpace(key)), ":", 2)
	if len(parts) != 2 {
		return Capability{}, fmt.Errorf("malformed capability %q", key)
	}
	c := Capability{Action: Action(parts[0]), Subject: Subject(parts[1])}
	for _, known := range Catalog() {
		if known == c {
			return c, nil
		}
	}
	return Capability{}, fmt.Errorf("unknown capability %q", key)
}
