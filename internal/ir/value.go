package ir

import (
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface over the value types allowed in canonical
// JSON: IRString, IRInt, IRBool, IRArray and IRObject. There is no float
// type, so scores never leak into content identities.
type IRValue interface {
	irValue() // Sealed
}

// IRString is a string value.
type IRString string

// IRInt is an integer value.
type IRInt int64

// IRBool is a boolean value.
type IRBool bool

// IRArray is an ordered list of values.
type IRArray []IRValue

// IRObject maps keys to values. Use SortedKeys for deterministic iteration.
type IRObject map[string]IRValue

func (IRString) irValue() {}
func (IRInt) irValue() {}
func (IRBool) irValue() {}
func (IRArray) irValue() {}
func (IRObject) irValue() {}

// Strings converts a string slice into an IRArray.
func Strings(ss []string) IRArray {
	arr := make(IRArray, len(ss))
	for i, s := range ss {
		arr[i] = IRString(s)
	}
	return arr
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 orders strings by UTF-16 code units. Byte order differs for
// characters outside the BMP.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
