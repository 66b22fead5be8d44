// Package mslc is a Pure Go shader-compiler core: it parses a GLSL-superset
// source (pipeline/sampler_state/varying/fragment-input declarations plus
// stage filters), hands per-stage GLSL text to an external front-end
// compiler, and turns the front-end's SPIR-V back into rich reflection
// metadata — structs, uniforms, interface locations, push constants — with
// cross-stage linking and a re-annotated SPIR-V rewrite.
//
// The reference GLSL→SPIR-V compiler, its optimizer, and backend emitters
// (GLSL downleveling, Metal transpile) are external collaborators reached
// through the FrontEnd interface; this package owns no codegen.
package mslc

import (
	"fmt"

	"github.com/gogpu/mslc/diag"
	"github.com/gogpu/mslc/parse"
	"github.com/gogpu/mslc/spv"
	"github.com/gogpu/mslc/state"
	"github.com/gogpu/mslc/token"
)

// OptimizeFlag selects a SPIR-V optimizer pass, forwarded verbatim to the
// external optimizer adapter.
type OptimizeFlag uint8

const (
	OptimizeRemapVariables OptimizeFlag = iota
	OptimizeDeadCodeElimination
	OptimizeGeneric
	OptimizeStripDebug
)

// FrontEnd is the reference GLSL front-end adapter contract (spec §6): the
// only non-trivial external collaborator. A caller supplies a concrete
// implementation (typically backed by glslang or a Go transpile of it);
// this package never implements one itself.
type FrontEnd interface {
	// Compile compiles one stage's synthesized GLSL to the front-end's
	// opaque intermediate program representation.
	Compile(stage parse.Stage, fileName, source string, mappings []parse.LineMapping, spirvTargetVersion uint32) (Program, *diag.Bag)
	// Link links a compiled program across a pipeline's stages.
	Link(pipelineName string, programs map[parse.Stage]Program) *diag.Bag
	// Emit returns the compiled SPIR-V words for stage, or nil on a prior
	// logged error.
	Emit(stage parse.Stage) []uint32
	// Optimize runs the named optimizer passes over words.
	Optimize(words []uint32, flags []OptimizeFlag) []uint32
}

// Program is an opaque handle into the front-end's own compiled-program
// representation; this package never inspects it.
type Program interface{}

// StageShader is one compiled stage's reflection and SPIR-V, ready for
// packaging (spec §6 "Module output", Shaders[]).
type StageShader struct {
	Stage     parse.Stage
	Processor *spv.SpirVProcessor
	SpirV     []uint32 // rewritten, per RewriteOptions
}

// CompiledPipeline is one pipeline's compiled shaders plus its render
// state, ready for the packager (spec §6).
type CompiledPipeline struct {
	Name               string
	Shaders            map[parse.Stage]*StageShader
	RenderState         state.RenderState
	PushConstantStruct  uint32 // struct index shared across stages, or spv.Unknown
	ComputeLocalSize    [3]uint32
	ClipDistanceCount   uint32
	CullDistanceCount   uint32
}

// RewriteOptions controls the final SPIR-V rewrite pass (spec §4.5).
type RewriteOptions struct {
	Strip         spv.Strip
	DummyBindings bool
}

// Compiler drives one module's worth of compilation: parse once, compile
// each declared pipeline's stages through the front-end, reflect and link
// their SPIR-V, and rewrite the result.
type Compiler struct {
	FrontEnd FrontEnd
	Options  parse.Options
	Rewrite  RewriteOptions

	// SPIRVTargetVersion is passed through to FrontEnd.Compile.
	SPIRVTargetVersion uint32

	// EarlyFragmentTestsByPipeline, when set for a pipeline name, prepends
	// layout(early_fragment_tests) in; to that pipeline's fragment stage.
	EarlyFragmentTestsByPipeline map[string]bool
}

// CompileModule parses tokens and compiles every declared pipeline. Errors
// for one pipeline do not abort the others (spec §7, "a failed compile
// yields an empty shader set for the failing pipeline; partially compiled
// pipelines in the same module remain intact").
func (c *Compiler) CompileModule(tokens token.List) ([]CompiledPipeline, []*Sampler, *diag.Bag) {
	bag := &diag.Bag{}

	p := parse.New()
	// Parse's error only summarizes p.Diagnostics(), merged below; elements
	// that parsed cleanly are still compiled.
	_ = p.Parse(tokens, c.Options)
	bag.Merge(p.Diagnostics())

	samplers := make([]*Sampler, 0, len(p.Samplers()))
	for _, s := range p.Samplers() {
		samplers = append(samplers, &Sampler{Name: s.Name, State: s.State})
	}

	var out []CompiledPipeline
	for _, pl := range p.Pipelines() {
		cp, pbag := c.compilePipeline(p, &pl)
		bag.Merge(pbag)
		out = append(out, cp)
	}

	return out, samplers, bag
}

// Sampler is a compiled sampler_state declaration (spec §3 "Sampler"),
// independent of any pipeline.
type Sampler struct {
	Name  string
	State state.SamplerState
}

func (c *Compiler) compilePipeline(p *parse.Parser, pl *parse.Pipeline) (CompiledPipeline, *diag.Bag) {
	var bag diag.Bag
	cp := CompiledPipeline{
		Name:               pl.Name,
		Shaders:            map[parse.Stage]*StageShader{},
		RenderState:        pl.RenderState,
		PushConstantStruct: spv.Unknown,
		ComputeLocalSize:   [3]uint32{1, 1, 1},
	}

	programs := map[parse.Stage]Program{}
	stages := activeStages(pl)

	for _, stage := range stages {
		source, mappings := p.CreateShaderString(pl, stage, false, c.earlyFragmentTests(pl.Name, stage))
		prog, cbag := c.FrontEnd.Compile(stage, pipelineOrigin(pl, stage), source, mappings, c.SPIRVTargetVersion)
		bag.Merge(cbag)
		if prog == nil {
			continue
		}
		programs[stage] = prog
	}

	if lbag := c.FrontEnd.Link(pl.Name, programs); lbag != nil {
		bag.Merge(lbag)
	}

	processors := map[parse.Stage]*spv.SpirVProcessor{}
	for _, stage := range stages {
		if _, ok := programs[stage]; !ok {
			continue
		}
		words := c.FrontEnd.Emit(stage)
		if len(words) == 0 {
			continue
		}
		proc, err := spv.Reflect(stage, pipelineOrigin(pl, stage), words, &bag)
		if err != nil {
			bag.Addf(token.Origin{FileName: pipelineOrigin(pl, stage)}, "SPIR-V reflection failed: %v", err)
			continue
		}
		processors[stage] = proc
	}

	linkStages(processors, &bag)

	for stage, proc := range processors {
		rewritten, err := proc.Rewrite(c.Rewrite.Strip, c.Rewrite.DummyBindings)
		if err != nil {
			bag.Addf(token.Origin{FileName: proc.Origin}, "SPIR-V rewrite failed: %v", err)
			continue
		}
		cp.Shaders[stage] = &StageShader{Stage: stage, Processor: proc, SpirV: rewritten}
		if proc.PushConstantStruct != spv.Unknown {
			cp.PushConstantStruct = proc.PushConstantStruct
		}
		if stage == parse.Compute {
			cp.ComputeLocalSize = proc.ComputeLocalSize
		}
		cp.ClipDistanceCount += proc.ClipDistanceCount
		cp.CullDistanceCount += proc.CullDistanceCount
	}

	return cp, &bag
}

// linkStages runs assignOutputs/assignInputs/linkInputs/uniformsCompatible
// across the pipeline's active stages in pipeline order (spec §4.4).
func linkStages(processors map[parse.Stage]*spv.SpirVProcessor, bag *diag.Bag) {
	order := []parse.Stage{parse.Vertex, parse.TessellationControl, parse.TessellationEvaluation, parse.Geometry, parse.Fragment}

	var prev *spv.SpirVProcessor
	for _, stage := range order {
		cur, ok := processors[stage]
		if !ok {
			continue
		}
		if prev != nil {
			if err := prev.AssignOutputs(); err != nil {
				bag.Addf(token.Origin{FileName: prev.Origin}, "%v", err)
			}
			cur.LinkInputs(prev, bag)
			if mismatches := cur.UniformsCompatible(prev); len(mismatches) > 0 {
				for _, name := range mismatches {
					bag.Addf(token.Origin{FileName: cur.Origin}, "struct %s has different declarations between stages", name)
				}
			}
		}
		if err := cur.AssignInputs(); err != nil {
			bag.Addf(token.Origin{FileName: cur.Origin}, "%v", err)
		}
		prev = cur
	}
	if prev != nil {
		if err := prev.AssignOutputs(); err != nil {
			bag.Addf(token.Origin{FileName: prev.Origin}, "%v", err)
		}
	}

	if compute, ok := processors[parse.Compute]; ok {
		if err := compute.AssignInputs(); err != nil {
			bag.Addf(token.Origin{FileName: compute.Origin}, "%v", err)
		}
		if err := compute.AssignOutputs(); err != nil {
			bag.Addf(token.Origin{FileName: compute.Origin}, "%v", err)
		}
	}
}

func activeStages(pl *parse.Pipeline) []parse.Stage {
	var stages []parse.Stage
	for s := parse.Vertex; s < parse.StageCount; s++ {
		if pl.HasEntryPoint(s) {
			stages = append(stages, s)
		}
	}
	return stages
}

func (c *Compiler) earlyFragmentTests(pipelineName string, stage parse.Stage) bool {
	return stage == parse.Fragment && c.EarlyFragmentTestsByPipeline[pipelineName]
}

func pipelineOrigin(pl *parse.Pipeline, stage parse.Stage) string {
	return fmt.Sprintf("%s:%s", pl.Name, stage)
}
