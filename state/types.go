package state

// The enum types below mirror spec §6's render-state/sampler-state field
// taxonomy. Unset (shared with the integer sentinel) marks "not specified
// in source", matching the source-of-truth's Unset-sentinel convention
// (spec §3, "RenderState ... plain record types whose fields each have an
// Unset sentinel").

type PolygonMode uint32

const (
	PolygonModeUnset PolygonMode = Unset
	PolygonModeFill  PolygonMode = iota
	PolygonModeLine
	PolygonModePoint
)

type CullMode uint32

const (
	CullModeUnset        CullMode = Unset
	CullModeNone         CullMode = iota
	CullModeFront
	CullModeBack
	CullModeFrontAndBack
)

type FrontFace uint32

const (
	FrontFaceUnset             FrontFace = Unset
	FrontFaceCounterClockwise  FrontFace = iota
	FrontFaceClockwise
)

type CompareOp uint32

const (
	CompareOpUnset CompareOp = Unset
	CompareOpNever CompareOp = iota
	CompareOpLess
	CompareOpEqual
	CompareOpLessOrEqual
	CompareOpGreater
	CompareOpNotEqual
	CompareOpGreaterOrEqual
	CompareOpAlways
)

type StencilOp uint32

const (
	StencilOpUnset StencilOp = Unset
	StencilOpKeep  StencilOp = iota
	StencilOpZero
	StencilOpReplace
	StencilOpIncrementAndClamp
	StencilOpDecrementAndClamp
	StencilOpInvert
	StencilOpIncrementAndWrap
	StencilOpDecrementAndWrap
)

type LogicalOp uint32

const (
	LogicalOpUnset        LogicalOp = Unset
	LogicalOpClear        LogicalOp = iota
	LogicalOpAnd
	LogicalOpAndReverse
	LogicalOpCopy
	LogicalOpAndInverted
	LogicalOpNoOp
	LogicalOpXor
	LogicalOpOr
	LogicalOpNor
	LogicalOpEquivalent
	LogicalOpInvert
	LogicalOpOrReverse
	LogicalOpCopyInverted
	LogicalOpOrInverted
	LogicalOpNand
	LogicalOpSet
)

type BlendFactor uint32

const (
	BlendFactorUnset BlendFactor = Unset
	BlendFactorZero  BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorOneMinusSrcColor
	BlendFactorDstColor
	BlendFactorOneMinusDstColor
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
	BlendFactorConstantColor
	BlendFactorOneMinusConstantColor
	BlendFactorConstantAlpha
	BlendFactorOneMinusConstantAlpha
	BlendFactorSrcAlphaSaturate
	BlendFactorSrc1Color
	BlendFactorOneMinusSrc1Color
	BlendFactorSrc1Alpha
	BlendFactorOneMinusSrc1Alpha
)

type BlendOp uint32

const (
	BlendOpUnset    BlendOp = Unset
	BlendOpAdd      BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

type Filter uint32

const (
	FilterUnset   Filter = Unset
	FilterNearest Filter = iota
	FilterLinear
)

type MipFilter uint32

const (
	MipFilterUnset       MipFilter = Unset
	MipFilterNone        MipFilter = iota
	MipFilterNearest
	MipFilterLinear
	MipFilterAnisotropic
)

type AddressMode uint32

const (
	AddressModeUnset           AddressMode = Unset
	AddressModeRepeat          AddressMode = iota
	AddressModeMirroredRepeat
	AddressModeClampToEdge
	AddressModeClampToBorder
	AddressModeMirrorOnce
)

type BorderColor uint32

const (
	BorderColorUnset              BorderColor = Unset
	BorderColorTransparentBlack   BorderColor = iota
	BorderColorTransparentIntZero
	BorderColorOpaqueBlack
	BorderColorOpaqueIntZero
	BorderColorOpaqueWhite
	BorderColorOpaqueIntOne
)

// ColorMask is a bit field over R,G,B,A (bits 0..3).
type ColorMask uint32

const (
	ColorMaskUnset ColorMask = Unset
	ColorMaskR     ColorMask = 1 << 0
	ColorMaskG     ColorMask = 1 << 1
	ColorMaskB     ColorMask = 1 << 2
	ColorMaskA     ColorMask = 1 << 3
)

// BlendAttachment is one element of BlendState.Attachments (spec §3).
type BlendAttachment struct {
	BlendEnable        uint32 // 0/1, Unset if unspecified
	SrcColorBlendFactor BlendFactor
	DstColorBlendFactor BlendFactor
	ColorBlendOp        BlendOp
	SrcAlphaBlendFactor BlendFactor
	DstAlphaBlendFactor BlendFactor
	AlphaBlendOp        BlendOp
	ColorWriteMask      ColorMask
}

// NewBlendAttachment returns a BlendAttachment with every field Unset.
func NewBlendAttachment() BlendAttachment {
	return BlendAttachment{
		BlendEnable:         Unset,
		SrcColorBlendFactor: BlendFactorUnset,
		DstColorBlendFactor: BlendFactorUnset,
		ColorBlendOp:        BlendOpUnset,
		SrcAlphaBlendFactor: BlendFactorUnset,
		DstAlphaBlendFactor: BlendFactorUnset,
		AlphaBlendOp:        BlendOpUnset,
		ColorWriteMask:      ColorMaskUnset,
	}
}

// MaxBlendAttachments bounds attachmentK_ indexed keys (spec §6).
const MaxBlendAttachments = 8

// StencilOpState is one side (front or back) of DepthStencilState's
// stencil configuration.
type StencilOpState struct {
	FailOp      StencilOp
	PassOp      StencilOp
	DepthFailOp StencilOp
	CompareOp   CompareOp
	CompareMask uint32
	WriteMask   uint32
	Reference   uint32
}

// NewStencilOpState returns a StencilOpState with every field Unset.
func NewStencilOpState() StencilOpState {
	return StencilOpState{
		FailOp:      StencilOpUnset,
		PassOp:      StencilOpUnset,
		DepthFailOp: StencilOpUnset,
		CompareOp:   CompareOpUnset,
		CompareMask: Unset,
		WriteMask:   Unset,
		Reference:   Unset,
	}
}

// RasterizationState (spec §6).
type RasterizationState struct {
	DepthClampEnable        uint32
	RasterizerDiscardEnable uint32
	PolygonMode             PolygonMode
	CullMode                CullMode
	FrontFace               FrontFace
	DepthBiasEnable         uint32
	DepthBiasConstantFactor float32
	DepthBiasClamp          float32
	DepthBiasSlopeFactor    float32
	LineWidth               float32
}

func newRasterizationState() RasterizationState {
	return RasterizationState{
		DepthClampEnable:        Unset,
		RasterizerDiscardEnable: Unset,
		PolygonMode:             PolygonModeUnset,
		CullMode:                CullModeUnset,
		FrontFace:               FrontFaceUnset,
		DepthBiasEnable:         Unset,
		DepthBiasConstantFactor: UnsetFloat,
		DepthBiasClamp:          UnsetFloat,
		DepthBiasSlopeFactor:    UnsetFloat,
		LineWidth:               UnsetFloat,
	}
}

// MultisampleState (spec §6).
type MultisampleState struct {
	SampleShadingEnable   uint32
	MinSampleShading      float32
	SampleMask            uint32
	AlphaToCoverageEnable uint32
	AlphaToOneEnable      uint32
}

func newMultisampleState() MultisampleState {
	return MultisampleState{
		SampleShadingEnable:   Unset,
		MinSampleShading:      UnsetFloat,
		SampleMask:            Unset,
		AlphaToCoverageEnable: Unset,
		AlphaToOneEnable:      Unset,
	}
}

// DepthStencilState (spec §6).
type DepthStencilState struct {
	DepthTestEnable       uint32
	DepthWriteEnable      uint32
	DepthCompareOp        CompareOp
	DepthBoundsTestEnable uint32
	StencilTestEnable     uint32
	Front                 StencilOpState
	Back                  StencilOpState
	MinDepthBounds        float32
	MaxDepthBounds        float32
}

func newDepthStencilState() DepthStencilState {
	return DepthStencilState{
		DepthTestEnable:       Unset,
		DepthWriteEnable:      Unset,
		DepthCompareOp:        CompareOpUnset,
		DepthBoundsTestEnable: Unset,
		StencilTestEnable:     Unset,
		Front:                 NewStencilOpState(),
		Back:                  NewStencilOpState(),
		MinDepthBounds:        UnsetFloat,
		MaxDepthBounds:        UnsetFloat,
	}
}

// BlendState (spec §6).
type BlendState struct {
	LogicalOpEnable                 uint32
	LogicalOp                       LogicalOp
	SeparateAttachmentBlendingEnable uint32
	Attachments                     [MaxBlendAttachments]BlendAttachment
	BlendConstant                   [4]float32
	HasBlendConstant                bool
}

func newBlendState() BlendState {
	bs := BlendState{
		LogicalOpEnable:                  Unset,
		LogicalOp:                        LogicalOpUnset,
		SeparateAttachmentBlendingEnable: Unset,
	}
	for i := range bs.Attachments {
		bs.Attachments[i] = NewBlendAttachment()
	}
	return bs
}

// RenderState aggregates the four GPU pipeline-state blocks plus the
// remaining pipeline-scoped keys (spec §6, "other pipeline keys").
type RenderState struct {
	Rasterization     RasterizationState
	Multisample       MultisampleState
	DepthStencil      DepthStencilState
	Blend             BlendState
	PatchControlPoints uint32
	EarlyFragmentTests uint32
	FragmentGroup      uint32
}

// NewRenderState returns a RenderState with every field Unset.
func NewRenderState() RenderState {
	return RenderState{
		Rasterization:      newRasterizationState(),
		Multisample:        newMultisampleState(),
		DepthStencil:       newDepthStencilState(),
		Blend:              newBlendState(),
		PatchControlPoints: Unset,
		EarlyFragmentTests: Unset,
		FragmentGroup:      Unset,
	}
}

// SamplerState (spec §6).
type SamplerState struct {
	MinFilter     Filter
	MagFilter     Filter
	MipFilter     MipFilter
	AddressModeU  AddressMode
	AddressModeV  AddressMode
	AddressModeW  AddressMode
	MipLodBias    float32
	MaxAnisotropy float32
	MinLod        float32
	MaxLod        float32
	BorderColor   BorderColor
	CompareOp     CompareOp
}

// NewSamplerState returns a SamplerState with every field Unset.
func NewSamplerState() SamplerState {
	return SamplerState{
		MinFilter:     FilterUnset,
		MagFilter:     FilterUnset,
		MipFilter:     MipFilterUnset,
		AddressModeU:  AddressModeUnset,
		AddressModeV:  AddressModeUnset,
		AddressModeW:  AddressModeUnset,
		MipLodBias:    UnsetFloat,
		MaxAnisotropy: UnsetFloat,
		MinLod:        UnsetFloat,
		MaxLod:        UnsetFloat,
		BorderColor:   BorderColorUnset,
		CompareOp:     CompareOpUnset,
	}
}
