package bitcode

// Block IDs of the LLVM 3.7 bitcode format.
const (
	moduleBlockID           = 8
	paramAttrBlockID        = 9
	paramAttrGroupBlockID   = 10
	constantsBlockID        = 11
	functionBlockID         = 12
	identificationBlockID   = 13
	valueSymtabBlockID      = 14
	metadataBlockID         = 15
	metadataAttachmentID    = 16
	typeBlockIDNew          = 17
	uselistBlockID          = 18
	moduleStrtabBlockID     = 19
	globalValSummaryBlockID = 20
	operandBundleTagsID     = 21
	metadataKindBlockID     = 22
)

// MODULE_BLOCK record codes.
const (
	moduleCodeVersion     = 1
	moduleCodeTriple      = 2
	moduleCodeDatalayout  = 3
	moduleCodeAsm         = 4
	moduleCodeSectionName = 5
	moduleCodeDeplib      = 6
	moduleCodeGlobalVar   = 7
	moduleCodeFunction    = 8
	moduleCodeAliasOld    = 9
	moduleCodePurgeVals   = 10
	moduleCodeGCName      = 11
	moduleCodeComdat      = 12
	moduleCodeVSTOffset   = 13
	moduleCodeAlias       = 14
)

// PARAMATTR and PARAMATTR_GROUP record codes.
const (
	paramAttrCodeEntryOld = 1
	paramAttrCodeEntry    = 2
	paramAttrGrpCodeEntry = 3
)

// TYPE_BLOCK record codes.
const (
	typeCodeNumEntry    = 1
	typeCodeVoid        = 2
	typeCodeFloat       = 3
	typeCodeDouble      = 4
	typeCodeLabel       = 5
	typeCodeOpaque      = 6
	typeCodeInteger     = 7
	typeCodePointer     = 8
	typeCodeFunctionOld = 9
	typeCodeHalf        = 10
	typeCodeArray       = 11
	typeCodeVector      = 12
	typeCodeX86FP80     = 13
	typeCodeFP128       = 14
	typeCodePPCFP128    = 15
	typeCodeMetadata    = 16
	typeCodeX86MMX      = 17
	typeCodeStructAnon  = 18
	typeCodeStructName  = 19
	typeCodeStructNamed = 20
	typeCodeFunction    = 21
	typeCodeToken       = 22
)

// CONSTANTS_BLOCK record codes.
const (
	cstCodeSetType       = 1
	cstCodeNull          = 2
	cstCodeUndef         = 3
	cstCodeInteger       = 4
	cstCodeWideInteger   = 5
	cstCodeFloat         = 6
	cstCodeAggregate     = 7
	cstCodeString        = 8
	cstCodeCString       = 9
	cstCodeCEBinop       = 10
	cstCodeCECast        = 11
	cstCodeCEGEP         = 12
	cstCodeCESelect      = 13
	cstCodeCEExtractElt  = 14
	cstCodeCEInsertElt   = 15
	cstCodeCEShuffleVec  = 16
	cstCodeCECmp         = 17
	cstCodeInlineAsmOld  = 18
	cstCodeCEShufVecEx   = 19
	cstCodeCEInboundsGEP = 20
	cstCodeBlockAddress  = 21
	cstCodeData          = 22
	cstCodeInlineAsm     = 23
)

// FUNCTION_BLOCK record codes.
const (
	funcCodeDeclareBlocks      = 1
	funcCodeInstBinop          = 2
	funcCodeInstCast           = 3
	funcCodeInstGEPOld         = 4
	funcCodeInstSelect         = 5
	funcCodeInstExtractElt     = 6
	funcCodeInstInsertElt      = 7
	funcCodeInstShuffleVec     = 8
	funcCodeInstCmp            = 9
	funcCodeInstRet            = 10
	funcCodeInstBr             = 11
	funcCodeInstSwitch         = 12
	funcCodeInstInvoke         = 13
	funcCodeInstUnreachable    = 15
	funcCodeInstPHI            = 16
	funcCodeInstAlloca         = 19
	funcCodeInstLoad           = 20
	funcCodeInstVAArg          = 23
	funcCodeInstStoreOld       = 24
	funcCodeInstExtractVal     = 26
	funcCodeInstInsertVal      = 27
	funcCodeInstCmp2           = 28
	funcCodeInstVSelect        = 29
	funcCodeInstInboundsGEPOld = 30
	funcCodeInstIndirectBr     = 31
	funcCodeDebugLocAgain      = 33
	funcCodeInstCall           = 34
	funcCodeDebugLoc           = 35
	funcCodeInstFence          = 36
	funcCodeInstCmpXchgOld     = 37
	funcCodeInstAtomicRMW      = 38
	funcCodeInstResume         = 39
	funcCodeInstLandingPadOld  = 40
	funcCodeInstLoadAtomic     = 41
	funcCodeInstStoreAtomicOld = 42
	funcCodeInstGEP            = 43
	funcCodeInstStore          = 44
	funcCodeInstStoreAtomic    = 45
	funcCodeInstCmpXchg        = 46
	funcCodeInstLandingPad     = 47
)

// VALUE_SYMTAB record codes.
const (
	vstCodeEntry   = 1
	vstCodeBBEntry = 2
	vstCodeFnEntry = 3
)

// METADATA_BLOCK record codes.
const (
	metadataString       = 1
	metadataValue        = 2
	metadataNode         = 3
	metadataName         = 4
	metadataDistinctNode = 5
	metadataKind         = 6
	metadataLocation     = 7
	metadataOldNode      = 8
	metadataOldFnNode    = 9
	metadataNamedNode    = 10
	metadataAttachment   = 11
	metadataGenericDebug = 12
	metadataModule       = 32
)

// USELIST_BLOCK record codes.
const (
	uselistCodeDefault = 1
	uselistCodeBB      = 2
)

// Flag bits on binary operators and calls.
const (
	oboNoUnsignedWrap = 0
	oboNoSignedWrap   = 1
	peoExact          = 0

	callTail         = 0
	callCConv        = 1
	callMustTail     = 14
	callExplicitType = 15
)

// Alloca alignment field flags.
const (
	allocaInAllocaMask     = 1 << 5
	allocaExplicitTypeMask = 1 << 6
)

// switchInstMagic marks the case-range SWITCH encoding.
const switchInstMagic = 0x4B5

// Bitcode wrapper header, used by Darwin toolchains.
const (
	wrapperMagic       = 0x0B17C0DE
	wrapperHeaderSize  = 20
	wrapperOffsetField = 8
	wrapperSizeField   = 12
)

// Integer widths accepted by TYPE_CODE_INTEGER.
const (
	minIntBits = 1
	maxIntBits = 1<<23 - 1
)
