package model

// NoteKind distinguishes the two content kinds the Blinko API accepts.
// The numeric values are part of the Blinko wire format ("type" field).
type NoteKind int

const (
	KindNote   NoteKind = 0 // Regular note.
	KindBlinko NoteKind = 1 // Flash thought, shown in Blinko's quick-capture stream.
)

// String returns the user-facing name of the kind, matching the slash
// command that creates it.
func (k NoteKind) String() string {
	if k == KindBlinko {
		return "blinko"
	}
	return "note"
}
