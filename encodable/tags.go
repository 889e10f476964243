package encodable

// Format version written in the two header bytes.
// Streams with a different major version, or a newer minor version, are rejected.
const (
	MajorVersion = 4
	MinorVersion = 8
)

// Tag bytes introducing each node.
const (
	tagNil        = '0'
	tagTrue       = 'T'
	tagFalse      = 'F'
	tagFixnum     = 'i'
	tagBignum     = 'l'
	tagFloat      = 'f'
	tagString     = '"'
	tagSymbol     = ':'
	tagSymlink    = ';'
	tagArray      = '['
	tagHash       = '{'
	tagHashDef    = '}'
	tagRegexp     = '/'
	tagClass      = 'c'
	tagModule     = 'm'
	tagModuleOld  = 'M'
	tagStruct     = 'S'
	tagObject     = 'o'
	tagUserDef    = 'u'
	tagUsrMarshal = 'U'
	tagUserClass  = 'C'
	tagIvar       = 'I'
	tagExtended   = 'e'
	tagLink       = '@'
)

// Field names with special meaning on the wire.
const (
	fieldEncodingShort = "E"
	fieldEncoding      = "encoding"
	fieldKeywords      = "K"
)

// maxNesting bounds the decoder's recursion on hostile input.
const maxNesting = 1 << 14
