// Package behavior declares how configuration fields combine across scopes,
// whether they take part in change detection, and whether generated docs show them.
//
// Every config record type publishes one Fields table. The tables are built once
// at package init and never mutated; the merge engine and the compare/show
// projections consult them by field name.
package behavior

import "fmt"

// MergeKind selects how a field's values from two scopes combine.
type MergeKind int

// Merge kinds. The zero value is Clobber.
const (
	// Clobber replaces the base value when the override sets the field.
	Clobber MergeKind = iota
	// Append concatenates sequences, base first.
	Append
	// Update merges dicts key-wise; override keys win.
	Update
	// DictKeyAppend unions dict keys and concatenates the sequences under each key.
	DictKeyAppend
)

func (m MergeKind) String() string {
	switch m {
	case Clobber:
		return "clobber"
	case Append:
		return "append"
	case Update:
		return "update"
	case DictKeyAppend:
		return "dict_key_append"
	}
	return fmt.Sprintf("MergeKind(%d)", int(m))
}

// CompareKind selects whether a field counts toward "config changed" detection.
type CompareKind int

// Compare kinds. The zero value is Include.
const (
	Include CompareKind = iota
	Exclude
)

func (c CompareKind) String() string {
	if c == Exclude {
		return "exclude"
	}
	return "include"
}

// ShowKind selects whether generated documentation surfaces a field.
type ShowKind int

// Show kinds. The zero value is Show.
const (
	Show ShowKind = iota
	Hide
)

func (s ShowKind) String() string {
	if s == Hide {
		return "hide"
	}
	return "show"
}

// FieldBehavior is the behavior triple attached to one field.
// The zero value is the default: Clobber, Include, Show.
type FieldBehavior struct {
	Merge   MergeKind
	Compare CompareKind
	Show    ShowKind
}

// Tag adjusts one axis of a FieldBehavior.
type Tag func(*FieldBehavior)

// Merging sets the merge axis.
func Merging(m MergeKind) Tag { return func(b *FieldBehavior) { b.Merge = m } }

// ExcludeFromCompare marks the field as ignored by change detection.
func ExcludeFromCompare(b *FieldBehavior) { b.Compare = Exclude }

// Hidden marks the field as omitted from generated docs.
func Hidden(b *FieldBehavior) { b.Show = Hide }

// Of builds a FieldBehavior from zero or more tags. Axes without a tag keep their defaults.
func Of(tags ...Tag) FieldBehavior {
	var b FieldBehavior
	for _, t := range tags {
		t(&b)
	}
	return b
}

func (b FieldBehavior) String() string {
	return fmt.Sprintf("%s/%s/%s", b.Merge, b.Compare, b.Show)
}
