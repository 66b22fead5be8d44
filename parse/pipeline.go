package parse

import (
	"github.com/gogpu/mslc/state"
	"github.com/gogpu/mslc/token"
)

// Pipeline is a named binding of per-stage entry points plus its render
// state (spec §3).
type Pipeline struct {
	Name        string
	Origin      token.Token
	EntryPoints [StageCount]token.Token // zero Token (empty Value) = absent
	RenderState state.RenderState
}

// HasEntryPoint reports whether s has a recorded entry point.
func (p *Pipeline) HasEntryPoint(s Stage) bool {
	return p.EntryPoints[s].Value != ""
}

// Sampler is a named sampler-state declaration (spec §3).
type Sampler struct {
	Name   string
	Origin token.Token
	State  state.SamplerState
}

// FragmentInput is one member of a FragmentInputGroup (spec §3).
type FragmentInput struct {
	Type            token.Token
	Name            token.Token
	AttachmentIndex uint32
	FragmentGroup   uint32
	Location        uint32
}

// FragmentInputGroup is a parsed `fragment <Type> { … } <name>;` block.
type FragmentInputGroup struct {
	TypeName     string
	InstanceName string
	Origin       token.Token
	Inputs       []FragmentInput
}
