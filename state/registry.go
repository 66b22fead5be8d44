package state

import (
	"fmt"
	"strconv"
	"strings"
)

// enum sets shared across registries, grounded in spec §6's taxonomy.

var polygonModes = EnumSet{"fill": uint32(PolygonModeFill), "line": uint32(PolygonModeLine), "point": uint32(PolygonModePoint)}

var cullModes = EnumSet{
	"none": uint32(CullModeNone), "front": uint32(CullModeFront),
	"back": uint32(CullModeBack), "front_and_back": uint32(CullModeFrontAndBack),
}

var frontFaces = EnumSet{"counter_clockwise": uint32(FrontFaceCounterClockwise), "clockwise": uint32(FrontFaceClockwise)}

var compareOps = EnumSet{
	"never": uint32(CompareOpNever), "less": uint32(CompareOpLess), "equal": uint32(CompareOpEqual),
	"less_or_equal": uint32(CompareOpLessOrEqual), "greater": uint32(CompareOpGreater),
	"not_equal": uint32(CompareOpNotEqual), "greater_or_equal": uint32(CompareOpGreaterOrEqual),
	"always": uint32(CompareOpAlways),
}

var stencilOps = EnumSet{
	"keep": uint32(StencilOpKeep), "zero": uint32(StencilOpZero), "replace": uint32(StencilOpReplace),
	"increment_and_clamp": uint32(StencilOpIncrementAndClamp), "decrement_and_clamp": uint32(StencilOpDecrementAndClamp),
	"invert": uint32(StencilOpInvert), "increment_and_wrap": uint32(StencilOpIncrementAndWrap),
	"decrement_and_wrap": uint32(StencilOpDecrementAndWrap),
}

var logicalOps = EnumSet{
	"clear": uint32(LogicalOpClear), "and": uint32(LogicalOpAnd), "and_reverse": uint32(LogicalOpAndReverse),
	"copy": uint32(LogicalOpCopy), "and_inverted": uint32(LogicalOpAndInverted), "no_op": uint32(LogicalOpNoOp),
	"xor": uint32(LogicalOpXor), "or": uint32(LogicalOpOr), "nor": uint32(LogicalOpNor),
	"equivalent": uint32(LogicalOpEquivalent), "invert": uint32(LogicalOpInvert), "or_reverse": uint32(LogicalOpOrReverse),
	"copy_inverted": uint32(LogicalOpCopyInverted), "or_inverted": uint32(LogicalOpOrInverted),
	"nand": uint32(LogicalOpNand), "set": uint32(LogicalOpSet),
}

var blendFactors = EnumSet{
	"zero": uint32(BlendFactorZero), "one": uint32(BlendFactorOne),
	"src_color": uint32(BlendFactorSrcColor), "one_minus_src_color": uint32(BlendFactorOneMinusSrcColor),
	"dst_color": uint32(BlendFactorDstColor), "one_minus_dst_color": uint32(BlendFactorOneMinusDstColor),
	"src_alpha": uint32(BlendFactorSrcAlpha), "one_minus_src_alpha": uint32(BlendFactorOneMinusSrcAlpha),
	"dst_alpha": uint32(BlendFactorDstAlpha), "one_minus_dst_alpha": uint32(BlendFactorOneMinusDstAlpha),
	"constant_color": uint32(BlendFactorConstantColor), "one_minus_constant_color": uint32(BlendFactorOneMinusConstantColor),
	"constant_alpha": uint32(BlendFactorConstantAlpha), "one_minus_constant_alpha": uint32(BlendFactorOneMinusConstantAlpha),
	"src_alpha_saturate": uint32(BlendFactorSrcAlphaSaturate),
	"src1_color": uint32(BlendFactorSrc1Color), "one_minus_src1_color": uint32(BlendFactorOneMinusSrc1Color),
	"src1_alpha": uint32(BlendFactorSrc1Alpha), "one_minus_src1_alpha": uint32(BlendFactorOneMinusSrc1Alpha),
}

var blendOps = EnumSet{
	"add": uint32(BlendOpAdd), "subtract": uint32(BlendOpSubtract), "reverse_subtract": uint32(BlendOpReverseSubtract),
	"min": uint32(BlendOpMin), "max": uint32(BlendOpMax),
}

var filters = EnumSet{"nearest": uint32(FilterNearest), "linear": uint32(FilterLinear)}

var mipFilters = EnumSet{
	"none": uint32(MipFilterNone), "nearest": uint32(MipFilterNearest),
	"linear": uint32(MipFilterLinear), "anisotropic": uint32(MipFilterAnisotropic),
}

var addressModes = EnumSet{
	"repeat": uint32(AddressModeRepeat), "mirrored_repeat": uint32(AddressModeMirroredRepeat),
	"clamp_to_edge": uint32(AddressModeClampToEdge), "clamp_to_border": uint32(AddressModeClampToBorder),
	"mirror_once": uint32(AddressModeMirrorOnce),
}

var borderColors = EnumSet{
	"transparent_black": uint32(BorderColorTransparentBlack), "transparent_int_zero": uint32(BorderColorTransparentIntZero),
	"opaque_black": uint32(BorderColorOpaqueBlack), "opaque_int_zero": uint32(BorderColorOpaqueIntZero),
	"opaque_white": uint32(BorderColorOpaqueWhite), "opaque_int_one": uint32(BorderColorOpaqueIntOne),
}

// RenderStateKey binds a Decoder to the function that applies the decoded
// Value onto a RenderState. For attachmentK_-prefixed blend keys, the
// attachment index is already baked into Apply at registration time.
type RenderStateKey struct {
	Decode Decoder
	Apply  func(rs *RenderState, v Value)
}

// RenderStateRegistry is the full default decoder(key) lookup for
// pipeline-block entries (spec §4.2, §6).
type RenderStateRegistry map[string]RenderStateKey

func boolApply(set func(rs *RenderState, u uint32)) func(*RenderState, Value) {
	return func(rs *RenderState, v Value) {
		u := uint32(0)
		if v.Bool {
			u = 1
		}
		set(rs, u)
	}
}

// DefaultRenderStateRegistry returns the complete key(=value) decoder
// registry for pipeline render-state entries, covering every key named in
// spec §6.
func DefaultRenderStateRegistry() RenderStateRegistry {
	r := RenderStateRegistry{}

	r["depth_clamp_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.Rasterization.DepthClampEnable = u })}
	r["rasterizer_discard_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.Rasterization.RasterizerDiscardEnable = u })}
	r["polygon_mode"] = RenderStateKey{DecodeEnum("polygon mode", polygonModes), func(rs *RenderState, v Value) { rs.Rasterization.PolygonMode = PolygonMode(v.Enum) }}
	r["cull_mode"] = RenderStateKey{DecodeEnum("cull mode", cullModes), func(rs *RenderState, v Value) { rs.Rasterization.CullMode = CullMode(v.Enum) }}
	r["front_face"] = RenderStateKey{DecodeEnum("front face", frontFaces), func(rs *RenderState, v Value) { rs.Rasterization.FrontFace = FrontFace(v.Enum) }}
	r["depth_bias_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.Rasterization.DepthBiasEnable = u })}
	r["depth_bias_constant_factor"] = RenderStateKey{DecodeFloat, func(rs *RenderState, v Value) { rs.Rasterization.DepthBiasConstantFactor = v.Float }}
	r["depth_bias_clamp"] = RenderStateKey{DecodeFloat, func(rs *RenderState, v Value) { rs.Rasterization.DepthBiasClamp = v.Float }}
	r["depth_bias_slope_factor"] = RenderStateKey{DecodeFloat, func(rs *RenderState, v Value) { rs.Rasterization.DepthBiasSlopeFactor = v.Float }}
	r["line_width"] = RenderStateKey{DecodeFloat, func(rs *RenderState, v Value) { rs.Rasterization.LineWidth = v.Float }}

	r["sample_shading_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.Multisample.SampleShadingEnable = u })}
	r["min_sample_shading"] = RenderStateKey{DecodeFloat, func(rs *RenderState, v Value) { rs.Multisample.MinSampleShading = v.Float }}
	r["sample_mask"] = RenderStateKey{DecodeInt, func(rs *RenderState, v Value) { rs.Multisample.SampleMask = uint32(v.Int) }}
	r["alpha_to_coverage_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.Multisample.AlphaToCoverageEnable = u })}
	r["alpha_to_one_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.Multisample.AlphaToOneEnable = u })}

	r["depth_test_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.DepthStencil.DepthTestEnable = u })}
	r["depth_write_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.DepthStencil.DepthWriteEnable = u })}
	r["depth_compare_op"] = RenderStateKey{DecodeEnum("compare op", compareOps), func(rs *RenderState, v Value) { rs.DepthStencil.DepthCompareOp = CompareOp(v.Enum) }}
	r["depth_bounds_test_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.DepthStencil.DepthBoundsTestEnable = u })}
	r["stencil_test_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.DepthStencil.StencilTestEnable = u })}
	r["min_depth_bounds"] = RenderStateKey{DecodeFloat, func(rs *RenderState, v Value) { rs.DepthStencil.MinDepthBounds = v.Float }}
	r["max_depth_bounds"] = RenderStateKey{DecodeFloat, func(rs *RenderState, v Value) { rs.DepthStencil.MaxDepthBounds = v.Float }}

	addStencilKeys(r, "stencil_", bothSides)
	addStencilKeys(r, "front_stencil_", frontOnly)
	addStencilKeys(r, "back_stencil_", backOnly)

	r["logical_op_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.Blend.LogicalOpEnable = u })}
	r["logical_op"] = RenderStateKey{DecodeEnum("logical op", logicalOps), func(rs *RenderState, v Value) { rs.Blend.LogicalOp = LogicalOp(v.Enum) }}
	r["separate_attachment_blending_enable"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.Blend.SeparateAttachmentBlendingEnable = u })}
	r["blend_constant"] = RenderStateKey{DecodeVec4, func(rs *RenderState, v Value) { rs.Blend.BlendConstant = v.Vec4; rs.Blend.HasBlendConstant = true }}

	addBlendAttachmentKeys(r)

	r["patch_control_points"] = RenderStateKey{DecodeInt, func(rs *RenderState, v Value) { rs.PatchControlPoints = uint32(v.Int) }}
	r["early_fragment_tests"] = RenderStateKey{DecodeBool, boolApply(func(rs *RenderState, u uint32) { rs.EarlyFragmentTests = u })}
	r["fragment_group"] = RenderStateKey{DecodeInt, func(rs *RenderState, v Value) { rs.FragmentGroup = uint32(v.Int) }}

	return r
}

type stencilSide uint8

const (
	bothSides stencilSide = iota
	frontOnly
	backOnly
)

func addStencilKeys(r RenderStateRegistry, prefix string, side stencilSide) {
	set := func(apply func(s *StencilOpState, v Value)) func(*RenderState, Value) {
		return func(rs *RenderState, v Value) {
			if side != backOnly {
				apply(&rs.DepthStencil.Front, v)
			}
			if side != frontOnly {
				apply(&rs.DepthStencil.Back, v)
			}
		}
	}
	r[prefix+"fail_op"] = RenderStateKey{DecodeEnum("stencil op", stencilOps), set(func(s *StencilOpState, v Value) { s.FailOp = StencilOp(v.Enum) })}
	r[prefix+"pass_op"] = RenderStateKey{DecodeEnum("stencil op", stencilOps), set(func(s *StencilOpState, v Value) { s.PassOp = StencilOp(v.Enum) })}
	r[prefix+"depth_fail_op"] = RenderStateKey{DecodeEnum("stencil op", stencilOps), set(func(s *StencilOpState, v Value) { s.DepthFailOp = StencilOp(v.Enum) })}
	r[prefix+"compare_op"] = RenderStateKey{DecodeEnum("compare op", compareOps), set(func(s *StencilOpState, v Value) { s.CompareOp = CompareOp(v.Enum) })}
	r[prefix+"compare_mask"] = RenderStateKey{DecodeInt, set(func(s *StencilOpState, v Value) { s.CompareMask = uint32(v.Int) })}
	r[prefix+"write_mask"] = RenderStateKey{DecodeInt, set(func(s *StencilOpState, v Value) { s.WriteMask = uint32(v.Int) })}
	r[prefix+"reference"] = RenderStateKey{DecodeInt, set(func(s *StencilOpState, v Value) { s.Reference = uint32(v.Int) })}
}

// addBlendAttachmentKeys registers the per-attachment blend keys, both in
// their un-prefixed form (applies to attachment 0) and their
// "attachmentK_"-prefixed form (applies to attachment K), plus the
// color/alpha-combining rule: a "*_blend_factor"/"*_blend_op" key without
// a color/alpha suffix sets both sides (spec §4.2).
func addBlendAttachmentKeys(r RenderStateRegistry) {
	type attachSetter struct {
		suffix string
		decode Decoder
		apply  func(a *BlendAttachment, v Value)
	}
	setters := []attachSetter{
		{"blend_enable", DecodeBool, func(a *BlendAttachment, v Value) {
			if v.Bool {
				a.BlendEnable = 1
			} else {
				a.BlendEnable = 0
			}
		}},
		{"src_color_blend_factor", DecodeEnum("blend factor", blendFactors), func(a *BlendAttachment, v Value) { a.SrcColorBlendFactor = BlendFactor(v.Enum) }},
		{"dst_color_blend_factor", DecodeEnum("blend factor", blendFactors), func(a *BlendAttachment, v Value) { a.DstColorBlendFactor = BlendFactor(v.Enum) }},
		{"color_blend_op", DecodeEnum("blend op", blendOps), func(a *BlendAttachment, v Value) { a.ColorBlendOp = BlendOp(v.Enum) }},
		{"src_alpha_blend_factor", DecodeEnum("blend factor", blendFactors), func(a *BlendAttachment, v Value) { a.SrcAlphaBlendFactor = BlendFactor(v.Enum) }},
		{"dst_alpha_blend_factor", DecodeEnum("blend factor", blendFactors), func(a *BlendAttachment, v Value) { a.DstAlphaBlendFactor = BlendFactor(v.Enum) }},
		{"alpha_blend_op", DecodeEnum("blend op", blendOps), func(a *BlendAttachment, v Value) { a.AlphaBlendOp = BlendOp(v.Enum) }},
		{"color_write_mask", DecodeColorMask, func(a *BlendAttachment, v Value) { a.ColorWriteMask = ColorMask(v.Mask) }},
		// combining keys: no color/alpha suffix sets both sides.
		{"src_blend_factor", DecodeEnum("blend factor", blendFactors), func(a *BlendAttachment, v Value) {
			a.SrcColorBlendFactor, a.SrcAlphaBlendFactor = BlendFactor(v.Enum), BlendFactor(v.Enum)
		}},
		{"dst_blend_factor", DecodeEnum("blend factor", blendFactors), func(a *BlendAttachment, v Value) {
			a.DstColorBlendFactor, a.DstAlphaBlendFactor = BlendFactor(v.Enum), BlendFactor(v.Enum)
		}},
		{"blend_op", DecodeEnum("blend op", blendOps), func(a *BlendAttachment, v Value) {
			a.ColorBlendOp, a.AlphaBlendOp = BlendOp(v.Enum), BlendOp(v.Enum)
		}},
	}

	for _, s := range setters {
		s := s
		r[s.suffix] = RenderStateKey{s.decode, func(rs *RenderState, v Value) {
			s.apply(&rs.Blend.Attachments[0], v)
		}}
		for i := 0; i < MaxBlendAttachments; i++ {
			key := fmt.Sprintf("attachment%d_%s", i, s.suffix)
			r[key] = RenderStateKey{s.decode, func(rs *RenderState, v Value) { s.apply(&rs.Blend.Attachments[i], v) }}
		}
	}
}

// Lookup resolves a key name to its RenderStateKey, returning ok=false for
// unrecognized keys (a hard error at the call site per spec §4.2,
// "Unknown key names are errors").
func (r RenderStateRegistry) Lookup(key string) (RenderStateKey, bool) {
	k, ok := r[key]
	return k, ok
}

// SamplerStateKey binds a Decoder to the function that applies the
// decoded Value onto a SamplerState.
type SamplerStateKey struct {
	Decode Decoder
	Apply  func(s *SamplerState, v Value)
}

// SamplerStateRegistry is the decoder(key) lookup for sampler_state block
// entries (spec §6).
type SamplerStateRegistry map[string]SamplerStateKey

// DefaultSamplerStateRegistry returns the complete sampler_state key
// registry.
func DefaultSamplerStateRegistry() SamplerStateRegistry {
	r := SamplerStateRegistry{}
	r["min_filter"] = SamplerStateKey{DecodeEnum("filter", filters), func(s *SamplerState, v Value) { s.MinFilter = Filter(v.Enum) }}
	r["mag_filter"] = SamplerStateKey{DecodeEnum("filter", filters), func(s *SamplerState, v Value) { s.MagFilter = Filter(v.Enum) }}
	r["mip_filter"] = SamplerStateKey{DecodeEnum("mip filter", mipFilters), func(s *SamplerState, v Value) { s.MipFilter = MipFilter(v.Enum) }}
	r["address_mode_u"] = SamplerStateKey{DecodeEnum("address mode", addressModes), func(s *SamplerState, v Value) { s.AddressModeU = AddressMode(v.Enum) }}
	r["address_mode_v"] = SamplerStateKey{DecodeEnum("address mode", addressModes), func(s *SamplerState, v Value) { s.AddressModeV = AddressMode(v.Enum) }}
	r["address_mode_w"] = SamplerStateKey{DecodeEnum("address mode", addressModes), func(s *SamplerState, v Value) { s.AddressModeW = AddressMode(v.Enum) }}
	r["mip_lod_bias"] = SamplerStateKey{DecodeFloat, func(s *SamplerState, v Value) { s.MipLodBias = v.Float }}
	r["max_anisotropy"] = SamplerStateKey{DecodeFloat, func(s *SamplerState, v Value) { s.MaxAnisotropy = v.Float }}
	r["min_lod"] = SamplerStateKey{DecodeFloat, func(s *SamplerState, v Value) { s.MinLod = v.Float }}
	r["max_lod"] = SamplerStateKey{DecodeFloat, func(s *SamplerState, v Value) { s.MaxLod = v.Float }}
	r["border_color"] = SamplerStateKey{DecodeEnum("border color", borderColors), func(s *SamplerState, v Value) { s.BorderColor = BorderColor(v.Enum) }}
	r["compare_op"] = SamplerStateKey{DecodeEnum("compare op", compareOps), func(s *SamplerState, v Value) { s.CompareOp = CompareOp(v.Enum) }}
	return r
}

// Lookup resolves a sampler key name.
func (r SamplerStateRegistry) Lookup(key string) (SamplerStateKey, bool) {
	k, ok := r[key]
	return k, ok
}

// SplitAttachmentKey strips an "attachmentK_" prefix off key, returning
// the base key name and the attachment index (-1 if unprefixed).
func SplitAttachmentKey(key string) (base string, attachment int) {
	if !strings.HasPrefix(key, "attachment") {
		return key, -1
	}
	rest := key[len("attachment"):]
	idx := strings.IndexByte(rest, '_')
	if idx <= 0 {
		return key, -1
	}
	n, err := strconv.Atoi(rest[:idx])
	if err != nil || n < 0 || n >= MaxBlendAttachments {
		return key, -1
	}
	return rest[idx+1:], n
}
