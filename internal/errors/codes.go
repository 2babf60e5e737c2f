// Package errors provides the centralized error-kind taxonomy for dalec.
// Every error kind named in spec.md §7 is a leaf constant here plus an
// entry in Registry describing its phase and category, following the
// same registry shape the teacher repo uses for its own error codes.
package errors

// Error code constants, grouped by the phase that raises them.
const (
	// ---- module naming / linking (MOD###) ----
	InvalidModuleName = "MOD001"
	CannotLinkModules = "MOD002"

	// ---- parse-shape errors, raised by the form dispatcher (DSP###) ----
	OnlyListsAtTopLevel          = "DSP001"
	NoEmptyLists                 = "DSP002"
	FirstListElementMustBeAtom   = "DSP003"
	FirstListElementMustBeSymbol = "DSP004"
	UnexpectedElement            = "DSP005"
	NoCoreFormNameInMacro        = "DSP006"

	// ---- scope / resolution errors (SCO###) ----
	NotInScope                            = "SCO001"
	MacroNotInScope                       = "SCO002"
	FunctionNotInScope                    = "SCO003"
	OverloadedFunctionOrMacroNotInScope    = "SCO004"
	OverloadedFunctionOrMacroNearestMatch  = "SCO005"

	// ---- call / argument errors (ARG###) ----
	IncorrectArgType             = "ARG001"
	IncorrectNumberOfArgs        = "ARG002"
	IncorrectMinimumNumberOfArgs = "ARG003"
	IncorrectSingleParameterType = "ARG004"
	VoidMustBeOnlyParameter      = "ARG005"
	VarargsMustBeLast            = "ARG006"

	// ---- type errors (TYP###) ----
	EnumValueDoesNotExist      = "TYP001"
	EnumTypeMustBeInteger      = "TYP002"
	FieldDoesNotExistInStruct  = "TYP003"
	CannotParseLiteral         = "TYP004"
	UnableToParseInteger       = "TYP005"
	InvalidFloatingPointNumber = "TYP006"
	InvalidInteger             = "TYP007"

	// ---- redeclaration errors (DEC###) ----
	RedeclarationOfFunction    = "DEC001"
	RedeclarationOfMacro       = "DEC002"
	RedeclarationOfStruct      = "DEC003"
	RedeclarationOfEnum        = "DEC004"
	RedeclarationOfEnumElement = "DEC005"

	// ---- lowering / lvalue errors (LOW###) ----
	NonNullPointerInGlobalStructDeclaration = "LOW001"
	StructContainsPadding                   = "LOW002"
	CannotTakeAddressOfNonLvalue             = "LOW003"
	InvalidAttribute                         = "LOW004"

	// ---- module / DTM errors (MDL###) ----
	UnableToLoadModule        = "MDL001"
	ModuleDoesNotProvideForms = "MDL002"
	FileError                 = "MDL003"
	CannotOnceTheLastOpenFile = "MDL004"

	// ---- macro / DNode errors (MAC###) ----
	DnodeHasNoString           = "MAC001"
	DnodeIsNeitherTokenNorList = "MAC002"

	// ---- internal engine failure (INT###) ----
	InternalError = "INT001"
)

// ErrorInfo describes a registered error code.
type ErrorInfo struct {
	Code        string
	Phase       string
	Category    string
	Description string
}

// Registry maps every error code to its descriptive metadata.
var Registry = map[string]ErrorInfo{
	InvalidModuleName: {InvalidModuleName, "dtm", "naming", "Invalid module name"},
	CannotLinkModules: {CannotLinkModules, "driver", "link", "Cannot link modules"},

	OnlyListsAtTopLevel:          {OnlyListsAtTopLevel, "dispatch", "syntax", "Only lists are permitted at top level"},
	NoEmptyLists:                 {NoEmptyLists, "dispatch", "syntax", "Empty lists are not permitted"},
	FirstListElementMustBeAtom:   {FirstListElementMustBeAtom, "dispatch", "syntax", "First list element must be an atom"},
	FirstListElementMustBeSymbol: {FirstListElementMustBeSymbol, "dispatch", "syntax", "First list element must be a symbol"},
	UnexpectedElement:            {UnexpectedElement, "dispatch", "syntax", "Unexpected element"},
	NoCoreFormNameInMacro:        {NoCoreFormNameInMacro, "decl", "macro", "Macro name collides with a core form"},

	NotInScope:                            {NotInScope, "ctx", "scope", "Name not in scope"},
	MacroNotInScope:                       {MacroNotInScope, "ctx", "scope", "Macro not in scope"},
	FunctionNotInScope:                    {FunctionNotInScope, "ctx", "scope", "Function not in scope"},
	OverloadedFunctionOrMacroNotInScope:   {OverloadedFunctionOrMacroNotInScope, "ctx", "scope", "No overload matches"},
	OverloadedFunctionOrMacroNearestMatch: {OverloadedFunctionOrMacroNearestMatch, "ctx", "scope", "No overload matches (nearest match available)"},

	IncorrectArgType:             {IncorrectArgType, "lower", "call", "Incorrect argument type"},
	IncorrectNumberOfArgs:        {IncorrectNumberOfArgs, "lower", "call", "Incorrect number of arguments"},
	IncorrectMinimumNumberOfArgs: {IncorrectMinimumNumberOfArgs, "lower", "call", "Too few arguments for variadic call"},
	IncorrectSingleParameterType: {IncorrectSingleParameterType, "decl", "params", "Single parameter must be void"},
	VoidMustBeOnlyParameter:      {VoidMustBeOnlyParameter, "decl", "params", "void must be the only parameter"},
	VarargsMustBeLast:            {VarargsMustBeLast, "decl", "params", "varargs must be the last parameter"},

	EnumValueDoesNotExist:      {EnumValueDoesNotExist, "lower", "enum", "Enum value does not exist"},
	EnumTypeMustBeInteger:      {EnumTypeMustBeInteger, "decl", "enum", "Enum underlying type must be an integer"},
	FieldDoesNotExistInStruct:  {FieldDoesNotExistInStruct, "lower", "struct", "Field does not exist in struct"},
	CannotParseLiteral:         {CannotParseLiteral, "lower", "literal", "Cannot parse literal"},
	UnableToParseInteger:       {UnableToParseInteger, "lower", "literal", "Unable to parse integer"},
	InvalidFloatingPointNumber: {InvalidFloatingPointNumber, "lower", "literal", "Invalid floating point number"},
	InvalidInteger:             {InvalidInteger, "lower", "literal", "Invalid integer"},

	RedeclarationOfFunction:    {RedeclarationOfFunction, "ctx", "redeclaration", "Redeclaration of function"},
	RedeclarationOfMacro:       {RedeclarationOfMacro, "ctx", "redeclaration", "Redeclaration of macro"},
	RedeclarationOfStruct:      {RedeclarationOfStruct, "ctx", "redeclaration", "Redeclaration of struct"},
	RedeclarationOfEnum:        {RedeclarationOfEnum, "ctx", "redeclaration", "Redeclaration of enum"},
	RedeclarationOfEnumElement: {RedeclarationOfEnumElement, "ctx", "redeclaration", "Redeclaration of enum element"},

	NonNullPointerInGlobalStructDeclaration: {NonNullPointerInGlobalStructDeclaration, "lower", "global", "Non-null pointer in global struct declaration"},
	StructContainsPadding:                   {StructContainsPadding, "lower", "global", "Struct contains padding"},
	CannotTakeAddressOfNonLvalue:            {CannotTakeAddressOfNonLvalue, "lower", "lvalue", "Cannot take address of non-lvalue"},
	InvalidAttribute:                        {InvalidAttribute, "decl", "attribute", "Invalid attribute"},

	UnableToLoadModule:        {UnableToLoadModule, "dtm", "import", "Unable to load module"},
	ModuleDoesNotProvideForms: {ModuleDoesNotProvideForms, "dtm", "import", "Module does not provide requested forms"},
	FileError:                 {FileError, "driver", "io", "File error"},
	CannotOnceTheLastOpenFile: {CannotOnceTheLastOpenFile, "dtm", "once", "Cannot once the last open file"},

	DnodeHasNoString:           {DnodeHasNoString, "macro", "dnode", "DNode has no string"},
	DnodeIsNeitherTokenNorList: {DnodeIsNeitherTokenNorList, "macro", "dnode", "DNode is neither token nor list"},

	InternalError: {InternalError, "driver", "internal", "Internal error"},
}

// Lookup returns the registered info for a code, if any.
func Lookup(code string) (ErrorInfo, bool) {
	info, ok := Registry[code]
	return info, ok
}
