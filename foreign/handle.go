package foreign

// Handle is an opaque reference to a foreign object.
// Handles are only meaningful to the interpreter that produced them.
type Handle uint32

// Null is the absent-object sentinel returned on failure.
const Null Handle = 0

// Tag identifies the category of a foreign object.
type Tag uint8

const (
	TagUnknown Tag = iota
	TagNone
	TagString
	TagChar
	TagBool
	TagArrayScalar
	TagInt
	TagFloat
	TagArray
	TagList
	TagTuple
	TagDict
	TagSlice
	TagDType
	TagType
	TagModule
	TagCallable
	TagException
	TagTraceback
)

var tagNames = [...]string{
	TagUnknown:     "unknown",
	TagNone:        "none",
	TagString:      "string",
	TagChar:        "char",
	TagBool:        "bool",
	TagArrayScalar: "array-scalar",
	TagInt:         "int",
	TagFloat:       "float",
	TagArray:       "array",
	TagList:        "list",
	TagTuple:       "tuple",
	TagDict:        "dict",
	TagSlice:       "slice",
	TagDType:       "dtype",
	TagType:        "type",
	TagModule:      "module",
	TagCallable:    "callable",
	TagException:   "exception",
	TagTraceback:   "traceback",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}
