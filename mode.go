package jigsaw

// Mode is the kind of page a view is serving. Any string is a valid mode;
// the constants below are the ones the stock pieces understand.
type Mode string

const (
	ModeList   Mode = "list"
	ModeDetail Mode = "detail"
	ModeNew    Mode = "new"
	ModeUpdate Mode = "update"
	ModeDelete Mode = "delete"
)

func (m Mode) String() string {
	return string(m)
}

// AcceptsSubmission reports whether pieces serving m react to submitted
// form data.
func (m Mode) AcceptsSubmission() bool {
	return m == ModeNew || m == ModeUpdate
}

// ResolveMode picks the mode a bound piece runs under. An explicit mode on
// the piece always wins over the view. A piece inherited from a parent class
// falls back to its declared default mode, if any; everything else follows
// the view.
func ResolveMode(explicit, def, viewMode Mode, inherited bool) Mode {
	if explicit != "" {
		return explicit
	}
	if inherited && def != "" {
		return def
	}
	return viewMode
}
