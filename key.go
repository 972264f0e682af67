package jigsaw

// Suffix names one of the fixed slots a piece may fill in a Context.
type Suffix int

const (
	SuffixNone Suffix = iota
	SuffixList
	SuffixIsPaginated
	SuffixPaginator
	SuffixPageObj
	SuffixForm
	SuffixFormset
	SuffixFilters
)

var suffixStrings = [...]string{
	SuffixNone:        "",
	SuffixList:        "_list",
	SuffixIsPaginated: "_is_paginated",
	SuffixPaginator:   "_paginator",
	SuffixPageObj:     "_page_obj",
	SuffixForm:        "_form",
	SuffixFormset:     "_formset",
	SuffixFilters:     "_filters",
}

// Suffixes lists every known suffix, SuffixNone first.
func Suffixes() []Suffix {
	return []Suffix{
		SuffixNone,
		SuffixList,
		SuffixIsPaginated,
		SuffixPaginator,
		SuffixPageObj,
		SuffixForm,
		SuffixFormset,
		SuffixFilters,
	}
}

func (s Suffix) String() string {
	if s < 0 || int(s) >= len(suffixStrings) {
		return ""
	}
	return suffixStrings[s]
}

// Key addresses one value in a Context: the name of the contributing piece
// and the slot it fills. Keys render to the flat names templates see, e.g.
// Key{"bug", SuffixList} is "bug_list".
type Key struct {
	Piece  string
	Suffix Suffix
}

// K returns the bare key for name.
func K(name string) Key {
	return Key{Piece: name}
}

func (k Key) String() string {
	return k.Piece + k.Suffix.String()
}
