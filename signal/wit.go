package signal

import (
	"go.bytecodealliance.org/wit"
)

// WitType maps a signal to the narrowest WIT value type that holds one
// word of it. Vectors become list<u8>; memories wrap the word type in a
// list.
func WitType(i Info) wit.Type {
	var word wit.Type
	switch {
	case i.Width == 1:
		word = wit.Bool{}
	case i.Width <= 8:
		word = wit.U8{}
	case i.Width <= 16:
		word = wit.U16{}
	case i.Width <= 32:
		word = wit.U32{}
	case i.Width <= 64:
		word = wit.U64{}
	default:
		word = &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}
	}
	if i.IsMemory() {
		return &wit.TypeDef{Kind: &wit.List{Type: word}}
	}
	return word
}

// TypeName renders the WIT type of i, for example "u16" or
// "list<list<u8>>".
func (i Info) TypeName() string {
	return WitType(i).WIT(nil, "")
}
