package bunfmt

// Encoding is the text encoding of an embedded module.
type Encoding uint8

const (
	EncodingBinary Encoding = 0
	EncodingLatin1 Encoding = 1
	EncodingUTF8   Encoding = 2
)

func (e Encoding) String() string {
	switch e {
	case EncodingBinary:
		return "binary"
	case EncodingLatin1:
		return "latin1"
	case EncodingUTF8:
		return "utf8"
	default:
		return "binary"
	}
}

// Loader is the loader Bun used for an embedded module.
type Loader uint8

const (
	LoaderJSX    Loader = 0
	LoaderJS     Loader = 1
	LoaderTS     Loader = 2
	LoaderTSX    Loader = 3
	LoaderCSS    Loader = 4
	LoaderFile   Loader = 5
	LoaderJSON   Loader = 6
	LoaderTOML   Loader = 7
	LoaderWASM   Loader = 8
	LoaderNAPI   Loader = 9
	LoaderText   Loader = 10
	LoaderSQLite Loader = 11
)

func (l Loader) String() string {
	switch l {
	case LoaderJSX:
		return "jsx"
	case LoaderJS:
		return "js"
	case LoaderTS:
		return "ts"
	case LoaderTSX:
		return "tsx"
	case LoaderCSS:
		return "css"
	case LoaderFile:
		return "file"
	case LoaderJSON:
		return "json"
	case LoaderTOML:
		return "toml"
	case LoaderWASM:
		return "wasm"
	case LoaderNAPI:
		return "napi"
	case LoaderText:
		return "text"
	case LoaderSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// Extension returns the file extension given to a module whose name has none.
func (l Loader) Extension() string {
	switch l {
	case LoaderTS:
		return ".ts"
	case LoaderTSX:
		return ".tsx"
	case LoaderJSX:
		return ".jsx"
	case LoaderCSS:
		return ".css"
	case LoaderJSON:
		return ".json"
	case LoaderTOML:
		return ".toml"
	case LoaderText:
		return ".txt"
	default:
		return ".js"
	}
}

// ModuleFormat is the module system of an embedded module.
type ModuleFormat uint8

const (
	FormatNone ModuleFormat = 0
	FormatCJS  ModuleFormat = 1
	FormatESM  ModuleFormat = 2
)

func (f ModuleFormat) String() string {
	switch f {
	case FormatNone:
		return "none"
	case FormatCJS:
		return "cjs"
	case FormatESM:
		return "esm"
	default:
		return "none"
	}
}

// Side is the target side of an embedded module.
type Side uint8

const (
	SideServer Side = 0
	SideClient Side = 1
)

func (s Side) String() string {
	switch s {
	case SideServer:
		return "server"
	case SideClient:
		return "client"
	default:
		return "server"
	}
}
