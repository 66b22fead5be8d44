package parse

import (
	"fmt"

	"github.com/gogpu/mslc/diag"
	"github.com/gogpu/mslc/state"
	"github.com/gogpu/mslc/token"
)

// Options configures Parser.Parse (spec §4.1, "Public contract").
type Options struct {
	// RemoveUniformBlocks folds uniform blocks into the synthetic
	// push-constant block during shader-string synthesis.
	RemoveUniformBlocks bool
	// SupportsFragmentInputs allows `fragment <Type> { … } <name>;`
	// blocks; otherwise such a declaration is a hard error.
	SupportsFragmentInputs bool
}

// Parser partitions a token list into per-stage elements and the
// pipeline/sampler/fragment-input declarations extracted from it (spec
// §4.1). Build a new Parser per source; it is not reusable.
type Parser struct {
	tokens token.List
	opts   Options
	bag    diag.Bag

	pos int // cursor into tokens during the element scan

	elements       [StageCount][]Element
	pipelines      []Pipeline
	samplers       []Sampler
	fragmentInputs []FragmentInputGroup

	renderRegistry state.RenderStateRegistry
	samplerReg     state.SamplerStateRegistry
}

// New returns a Parser ready to consume tokens.
func New() *Parser {
	return &Parser{
		renderRegistry: state.DefaultRenderStateRegistry(),
		samplerReg:     state.DefaultSamplerStateRegistry(),
	}
}

// Pipelines returns the pipelines declared in the parsed source.
func (p *Parser) Pipelines() []Pipeline { return p.pipelines }

// Samplers returns the sampler_state declarations in the parsed source.
func (p *Parser) Samplers() []Sampler { return p.samplers }

// FragmentInputs returns the fragment-input groups in the parsed source.
func (p *Parser) FragmentInputs() []FragmentInputGroup { return p.fragmentInputs }

// Diagnostics returns the accumulated diagnostics, errors and all.
func (p *Parser) Diagnostics() *diag.Bag { return &p.bag }

// ElementsForStage returns the classified elements belonging to stage s,
// in source order.
func (p *Parser) ElementsForStage(s Stage) []Element { return p.elements[s] }

// Parse consumes tokens under opts, accumulating pipelines, samplers,
// fragment-input groups, and per-stage element classifications. Errors are
// reported through Diagnostics(); Parse itself never returns early except
// when it can make no further forward progress.
func (p *Parser) Parse(tokens token.List, opts Options) error {
	p.tokens = tokens
	p.opts = opts
	p.pos = 0

	for p.pos < len(p.tokens) {
		p.skipSkippable()
		if p.pos >= len(p.tokens) {
			break
		}
		start := p.pos
		mask, ok := p.consumeStageFilter()
		if !ok {
			// consumeStageFilter already reported a diagnostic; resync to
			// the next ';' or matching '}' at depth 0 to avoid cascading.
			p.resyncToElementEnd()
			continue
		}
		p.skipSkippable()
		if p.pos >= len(p.tokens) {
			p.bag.Addf(p.originAt(start), "unexpected end of input after stage filter")
			break
		}

		if !p.dispatchElement(mask) {
			p.resyncToElementEnd()
		}
	}
	return p.bag.Err()
}

// dispatchElement recognizes and consumes one Element (spec §4.1
// grammar): pipeline, sampler_state, varying, fragment-input block, or a
// free declaration folded into the stage-scoped element classification.
func (p *Parser) dispatchElement(mask StageMask) bool {
	t, ok := p.peekToken()
	if !ok {
		return false
	}
	switch {
	case t.Kind == token.Identifier && t.Value == "pipeline":
		return p.parsePipeline()
	case t.Kind == token.Identifier && t.Value == "sampler_state":
		return p.parseSamplerState()
	case t.Kind == token.Identifier && t.Value == "varying":
		return p.parseVarying()
	case t.Kind == token.Identifier && t.Value == "fragment" && p.opts.SupportsFragmentInputs:
		return p.parseFragmentInputBlock()
	default:
		return p.parseFreeDecl(mask)
	}
}

// --- low-level cursor helpers -------------------------------------------------

func (p *Parser) skipSkippable() {
	for p.pos < len(p.tokens) && p.tokens[p.pos].IsSkippable() {
		p.pos++
	}
}

func (p *Parser) peekToken() (token.Token, bool) {
	save := p.pos
	p.skipSkippable()
	if p.pos >= len(p.tokens) {
		p.pos = save
		return token.Token{}, false
	}
	t := p.tokens[p.pos]
	p.pos = save
	return t, true
}

// next returns the next non-skippable token and advances past it.
func (p *Parser) next() (token.Token, bool) {
	p.skipSkippable()
	if p.pos >= len(p.tokens) {
		return token.Token{}, false
	}
	t := p.tokens[p.pos]
	p.pos++
	return t, true
}

func (p *Parser) originAt(pos int) token.Origin {
	if pos >= 0 && pos < len(p.tokens) {
		return p.tokens[pos].Origin
	}
	if len(p.tokens) > 0 {
		return p.tokens[len(p.tokens)-1].Origin
	}
	return token.Origin{}
}

func (p *Parser) curOrigin() token.Origin { return p.originAt(p.pos) }

// expectSymbol consumes tok if the next non-skippable token equals it,
// reporting an error and returning false otherwise.
func (p *Parser) expectSymbol(sym string) bool {
	t, ok := p.next()
	if !ok {
		p.bag.Addf(p.curOrigin(), "unexpected end of input, expected '%s'", sym)
		return false
	}
	if t.Value != sym {
		p.bag.Addf(t.Origin, "unexpected token '%s', expected '%s'", t.Value, sym)
		return false
	}
	return true
}

// expectIdentifier consumes and returns the next identifier token.
func (p *Parser) expectIdentifier(what string) (token.Token, bool) {
	t, ok := p.next()
	if !ok {
		p.bag.Addf(p.curOrigin(), "unexpected end of input, expected %s", what)
		return token.Token{}, false
	}
	if t.Kind != token.Identifier {
		p.bag.Addf(t.Origin, "unexpected token '%s', expected %s", t.Value, what)
		return token.Token{}, false
	}
	return t, true
}

// resyncToElementEnd advances past the current malformed element to the
// next ';' or the closing '}' of a top-level block, so independent
// elements can still be parsed (spec §4.1, "Failure semantics").
func (p *Parser) resyncToElementEnd() {
	depthParen, depthBrace, depthBracket := 0, 0, 0
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		p.pos++
		switch t.Value {
		case "(":
			depthParen++
		case ")":
			if depthParen > 0 {
				depthParen--
			}
		case "[":
			depthBracket++
		case "]":
			if depthBracket > 0 {
				depthBracket--
			}
		case "{":
			depthBrace++
		case "}":
			if depthBrace > 0 {
				depthBrace--
				continue
			}
			return
		case ";":
			if depthParen == 0 && depthBrace == 0 && depthBracket == 0 {
				return
			}
		}
	}
}

// consumeStageFilter consumes an optional `[[StageA, StageB, …]]` prefix,
// valid only at element start (spec §4.1). Returns AllStages when absent.
func (p *Parser) consumeStageFilter() (StageMask, bool) {
	t, ok := p.peekToken()
	if !ok || t.Value != "[" {
		return AllStages, true
	}
	start := p.pos
	p.next() // first '['
	second, ok := p.next()
	if !ok || second.Value != "[" {
		p.bag.Addf(p.originAt(start), "misplaced stage filter: expected '[['")
		return 0, false
	}

	mask := StageMask(0)
	for {
		name, ok := p.expectIdentifier("stage name")
		if !ok {
			return 0, false
		}
		s, known := LookupStage(name.Value)
		if !known {
			p.bag.Addf(name.Origin, "unknown stage name '%s'", name.Value)
			return 0, false
		}
		mask = mask.With(s)

		n, ok := p.next()
		if !ok {
			p.bag.Addf(p.curOrigin(), "unexpected end of input in stage filter")
			return 0, false
		}
		if n.Value == "," {
			continue
		}
		if n.Value == "]" {
			break
		}
		p.bag.Addf(n.Origin, "unexpected token '%s' in stage filter", n.Value)
		return 0, false
	}
	if !p.expectSymbol("]") {
		return 0, false
	}
	return mask, true
}

// findPipeline returns the index of a previously-declared pipeline named
// name, or -1.
func (p *Parser) findPipeline(name string) int {
	for i := range p.pipelines {
		if p.pipelines[i].Name == name {
			return i
		}
	}
	return -1
}

func (p *Parser) findSampler(name string) int {
	for i := range p.samplers {
		if p.samplers[i].Name == name {
			return i
		}
	}
	return -1
}

// parsePipeline consumes `pipeline Ident { (PipelineEntry ";")* }`.
func (p *Parser) parsePipeline() bool {
	p.next() // 'pipeline'
	name, ok := p.expectIdentifier("pipeline name")
	if !ok {
		return false
	}
	if existing := p.findPipeline(name.Value); existing >= 0 {
		p.bag.Addf(name.Origin, "pipeline of name '%s' already declared", name.Value)
		p.bag.Continuedf(p.pipelines[existing].Origin.Origin, "see other declaration of pipeline '%s'", name.Value)
		// Still consume the body so a later independent element can parse.
		if p.expectSymbol("{") {
			p.skipBalancedBody()
		}
		return true
	}

	pl := Pipeline{Name: name.Value, Origin: name, RenderState: state.NewRenderState()}
	open, _ := p.peekToken()
	if !p.expectSymbol("{") {
		return false
	}
	for {
		t, ok := p.peekToken()
		if !ok {
			p.bag.Addf(p.curOrigin(), "unexpected end of input, expected '}' to close pipeline '%s'", name.Value)
			p.bag.Continuedf(open.Origin, "see opening '{'")
			return false
		}
		if t.Value == "}" {
			p.next()
			break
		}
		if !p.parsePipelineEntry(&pl) {
			return false
		}
	}
	p.pipelines = append(p.pipelines, pl)
	return true
}

// parsePipelineEntry consumes one `StageName = Ident ;` or
// `RenderStateKey = decoder(...) ;` entry.
func (p *Parser) parsePipelineEntry(pl *Pipeline) bool {
	key, ok := p.expectIdentifier("pipeline entry key")
	if !ok {
		return false
	}
	if !p.expectSymbol("=") {
		return false
	}
	if s, known := LookupStage(key.Value); known {
		entry, ok := p.expectIdentifier("entry-point identifier")
		if !ok {
			return false
		}
		pl.EntryPoints[s] = entry
		return p.expectSymbol(";")
	}

	rk, known := p.renderRegistry.Lookup(key.Value)
	if !known {
		p.bag.Addf(key.Origin, "unknown render-state key '%s'", key.Value)
		return false
	}
	end := p.findTerminator(";")
	cur := state.NewCursor(p.tokens, p.pos, end)
	v, err := rk.Decode(cur)
	if err != nil {
		p.bag.Addf(key.Origin, "%s", err.Error())
		p.pos = end
	} else {
		rk.Apply(&pl.RenderState, v)
		p.pos = cur.Pos
	}
	return p.expectSymbol(";")
}

// findTerminator returns the index of the next occurrence of a ";" token
// at the current bracket depth, used to bound a value-decoder cursor.
func (p *Parser) findTerminator(sym string) int {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		t := p.tokens[i]
		switch t.Value {
		case "(", "[":
			depth++
		case ")", "]":
			depth--
		case sym:
			if depth == 0 {
				return i
			}
		}
	}
	return len(p.tokens)
}

// skipBalancedBody consumes tokens up to and including the matching '}'
// for a '{' already consumed by the caller.
func (p *Parser) skipBalancedBody() {
	depth := 1
	for p.pos < len(p.tokens) && depth > 0 {
		t := p.tokens[p.pos]
		p.pos++
		switch t.Value {
		case "{":
			depth++
		case "}":
			depth--
		}
	}
}

// parseSamplerState consumes `sampler_state Ident { (key = value ;)* }`.
func (p *Parser) parseSamplerState() bool {
	p.next() // 'sampler_state'
	name, ok := p.expectIdentifier("sampler name")
	if !ok {
		return false
	}
	if existing := p.findSampler(name.Value); existing >= 0 {
		p.bag.Addf(name.Origin, "sampler of name '%s' already declared", name.Value)
		p.bag.Continuedf(p.samplers[existing].Origin.Origin, "see other declaration of sampler '%s'", name.Value)
		if p.expectSymbol("{") {
			p.skipBalancedBody()
		}
		return true
	}

	s := Sampler{Name: name.Value, Origin: name, State: state.NewSamplerState()}
	open, _ := p.peekToken()
	if !p.expectSymbol("{") {
		return false
	}
	for {
		t, ok := p.peekToken()
		if !ok {
			p.bag.Addf(p.curOrigin(), "unexpected end of input, expected '}' to close sampler_state '%s'", name.Value)
			p.bag.Continuedf(open.Origin, "see opening '{'")
			return false
		}
		if t.Value == "}" {
			p.next()
			break
		}
		key, ok := p.expectIdentifier("sampler key")
		if !ok {
			return false
		}
		if !p.expectSymbol("=") {
			return false
		}
		sk, known := p.samplerReg.Lookup(key.Value)
		if !known {
			p.bag.Addf(key.Origin, "unknown sampler key '%s'", key.Value)
			return false
		}
		end := p.findTerminator(";")
		cur := state.NewCursor(p.tokens, p.pos, end)
		v, err := sk.Decode(cur)
		if err != nil {
			p.bag.Addf(key.Origin, "%s", err.Error())
			p.pos = end
		} else {
			sk.Apply(&s.State, v)
			p.pos = cur.Pos
		}
		if !p.expectSymbol(";") {
			return false
		}
	}
	p.samplers = append(p.samplers, s)
	return true
}

// parseVarying consumes `varying ( outStage , inStage ) { decls }` and
// re-declares each member into both stages' element lists (spec §4.1).
func (p *Parser) parseVarying() bool {
	p.next() // 'varying'
	if !p.expectSymbol("(") {
		return false
	}
	outName, ok := p.expectIdentifier("output stage name")
	if !ok {
		return false
	}
	outStage, known := LookupStage(outName.Value)
	if !known {
		p.bag.Addf(outName.Origin, "unknown stage name '%s'", outName.Value)
		return false
	}
	if !p.expectSymbol(",") {
		return false
	}
	inName, ok := p.expectIdentifier("input stage name")
	if !ok {
		return false
	}
	inStage, known := LookupStage(inName.Value)
	if !known {
		p.bag.Addf(inName.Origin, "unknown stage name '%s'", inName.Value)
		return false
	}
	if !p.expectSymbol(")") {
		return false
	}

	if outStage == Compute || inStage == Compute {
		p.bag.Addf(outName.Origin, "varying cannot reference the compute stage")
		return false
	}
	if !precedesInPipeline(outStage, inStage) {
		p.bag.Addf(outName.Origin, "varying output stage '%s' must precede input stage '%s' in pipeline order", outName.Value, inName.Value)
		return false
	}

	if !p.expectSymbol("{") {
		return false
	}
	for {
		t, ok := p.peekToken()
		if !ok {
			p.bag.Addf(p.curOrigin(), "unexpected end of input, expected '}' to close varying block")
			return false
		}
		if t.Value == "}" {
			p.next()
			break
		}
		start := p.pos
		end := p.findTerminator(";")
		if end >= len(p.tokens) {
			p.bag.Addf(p.originAt(start), "unterminated varying declaration")
			return false
		}
		declRange := token.Range{Start: uint32(start), Count: uint32(end - start)}
		p.pos = end + 1 // consume ';'

		outPrefix := ExtraOutPrefix(outStage)
		inPrefix := ExtraInPrefix(inStage)
		outRange := declRange
		outRange.ExtraPrefix = outPrefix
		inRange := declRange
		inRange.ExtraPrefix = inPrefix

		p.elements[outStage] = append(p.elements[outStage], Element{Kind: Default, Stages: maskBit(outStage), Range: outRange})
		p.elements[inStage] = append(p.elements[inStage], Element{Kind: Default, Stages: maskBit(inStage), Range: inRange})
	}
	return true
}

// ExtraOutPrefix returns the synthesized prepend for re-declaring a
// varying member as this stage's output. Tess-Control output arraying
// (spec §3 invariant 5) is applied at shader-string emission time from
// the stage itself, not from this prefix tag.
func ExtraOutPrefix(Stage) token.ExtraPrefix {
	return token.ExtraOut
}

// ExtraInPrefix returns the synthesized prepend for re-declaring a
// varying member as this stage's input.
func ExtraInPrefix(s Stage) token.ExtraPrefix {
	if requiresInputArraying(s) {
		return token.ExtraInArray
	}
	return token.ExtraIn
}

// parseFragmentInputBlock consumes `fragment Ident { (layout(...) decl;)* } name;`.
func (p *Parser) parseFragmentInputBlock() bool {
	start := p.pos
	p.next() // 'fragment'
	typeName, ok := p.expectIdentifier("fragment-input type name")
	if !ok {
		return false
	}
	braceTok, ok := p.next()
	if !ok || braceTok.Value != "{" {
		p.bag.Addf(p.originAt(start), "fragment input block must start with '{'")
		return false
	}

	group := FragmentInputGroup{TypeName: typeName.Value, Origin: typeName}
	for {
		t, ok := p.peekToken()
		if !ok {
			p.bag.Addf(p.curOrigin(), "unexpected end of input, expected '}' to close fragment input block")
			return false
		}
		if t.Value == "}" {
			p.next()
			break
		}
		fi, ok := p.parseFragmentInputMember(braceTok)
		if !ok {
			return false
		}
		group.Inputs = append(group.Inputs, fi)
	}

	instance, ok := p.expectIdentifier("fragment-input instance name")
	if !ok {
		return false
	}
	group.InstanceName = instance.Value
	if !p.expectSymbol(";") {
		return false
	}

	for _, existing := range p.fragmentInputs {
		for _, in := range existing.Inputs {
			for _, n := range group.Inputs {
				if in.Name.Value == n.Name.Value {
					p.bag.Addf(n.Name.Origin, "fragment input member '%s' already declared", n.Name.Value)
					p.bag.Continuedf(in.Name.Origin, "see other declaration of '%s'", in.Name.Value)
				}
			}
		}
	}

	p.fragmentInputs = append(p.fragmentInputs, group)
	return true
}

// parseFragmentInputMember consumes one `layout(location=…, fragment_group=…) Type name ;`.
func (p *Parser) parseFragmentInputMember(blockOpen token.Token) (FragmentInput, bool) {
	layoutTok, ok := p.expectIdentifier("'layout'")
	if !ok || layoutTok.Value != "layout" {
		p.bag.Addf(blockOpen.Origin, "fragment input layout must contain 'layout' and 'fragment_group' qualifiers")
		return FragmentInput{}, false
	}
	if !p.expectSymbol("(") {
		return FragmentInput{}, false
	}

	var location, fragmentGroup *uint32
	var locationOrigin, fragmentGroupOrigin token.Origin
	for {
		qual, ok := p.expectIdentifier("layout qualifier")
		if !ok {
			return FragmentInput{}, false
		}
		if !p.expectSymbol("=") {
			return FragmentInput{}, false
		}
		val, ok := p.next()
		if !ok || val.Kind != token.IntLit {
			p.bag.Addf(val.Origin, "expected integer value for layout qualifier '%s'", qual.Value)
			return FragmentInput{}, false
		}
		n := parseUintLiteral(val.Value)
		switch qual.Value {
		case "location":
			if location != nil {
				p.bag.Addf(qual.Origin, "duplicate 'location' qualifier")
				p.bag.Continuedf(locationOrigin, "see prior 'location' qualifier")
				return FragmentInput{}, false
			}
			location = &n
			locationOrigin = qual.Origin
		case "fragment_group":
			if fragmentGroup != nil {
				p.bag.Addf(qual.Origin, "duplicate 'fragment_group' qualifier")
				p.bag.Continuedf(fragmentGroupOrigin, "see prior 'fragment_group' qualifier")
				return FragmentInput{}, false
			}
			fragmentGroup = &n
			fragmentGroupOrigin = qual.Origin
		default:
			p.bag.Addf(qual.Origin, "unknown layout qualifier '%s'", qual.Value)
			return FragmentInput{}, false
		}
		next, ok := p.next()
		if !ok {
			p.bag.Addf(p.curOrigin(), "unexpected end of input in layout qualifier list")
			return FragmentInput{}, false
		}
		if next.Value == "," {
			continue
		}
		if next.Value == ")" {
			break
		}
		p.bag.Addf(next.Origin, "unexpected token '%s' in layout qualifier list", next.Value)
		return FragmentInput{}, false
	}

	if location == nil || fragmentGroup == nil {
		p.bag.Addf(blockOpen.Origin, "fragment input layout must contain 'layout' and 'fragment_group' qualifiers")
		return FragmentInput{}, false
	}

	typ, ok := p.expectIdentifier("fragment-input member type")
	if !ok {
		return FragmentInput{}, false
	}
	name, ok := p.expectIdentifier("fragment-input member name")
	if !ok {
		return FragmentInput{}, false
	}
	if !p.expectSymbol(";") {
		return FragmentInput{}, false
	}

	return FragmentInput{
		Type:            typ,
		Name:            name,
		AttachmentIndex: *location,
		FragmentGroup:   *fragmentGroup,
		Location:        *location,
	}, true
}

func parseUintLiteral(lit string) uint32 {
	var n uint32
	fmt.Sscanf(lit, "%d", &n)
	return n
}

// parseFreeDecl consumes a `FreeDecl` element: any token sequence
// terminated by ';' at depth 0, or a brace-delimited block at depth 0
// (spec §4.1). It is classified and recorded against every stage in mask.
func (p *Parser) parseFreeDecl(mask StageMask) bool {
	start := p.pos
	depthParen, depthBrace, depthBracket := 0, 0, 0
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		switch t.Value {
		case "(":
			depthParen++
		case ")":
			if depthParen > 0 {
				depthParen--
			}
		case "[":
			depthBracket++
		case "]":
			if depthBracket > 0 {
				depthBracket--
			}
		case "{":
			if depthBrace == 0 && depthParen == 0 && depthBracket == 0 {
				// A top-level brace block is its own element once closed.
				depthBrace++
				p.pos++
				p.consumeUntilBraceClose(&depthBrace)
				end := p.pos
				p.recordFreeDecl(mask, start, end)
				return true
			}
			depthBrace++
		case "}":
			if depthBrace > 0 {
				depthBrace--
			}
		case ";":
			if depthParen == 0 && depthBrace == 0 && depthBracket == 0 {
				p.pos++
				p.recordFreeDecl(mask, start, p.pos)
				return true
			}
		}
		p.pos++
	}
	p.bag.Addf(p.originAt(start), "unexpected end of input while scanning declaration")
	p.bag.Continuedf(p.originAt(start), "see start of declaration")
	return false
}

// consumeUntilBraceClose advances p.pos past tokens until *depth returns
// to 0, given the opening '{' has already been consumed and counted.
func (p *Parser) consumeUntilBraceClose(depth *int) {
	for p.pos < len(p.tokens) && *depth > 0 {
		t := p.tokens[p.pos]
		p.pos++
		switch t.Value {
		case "{":
			*depth++
		case "}":
			*depth--
		}
	}
}

func (p *Parser) recordFreeDecl(mask StageMask, start, end int) {
	r := token.Range{Start: uint32(start), Count: uint32(end - start)}
	kind := classify(p.tokens, r)
	for s := Stage(0); s < StageCount; s++ {
		if mask.Has(s) {
			p.elements[s] = append(p.elements[s], Element{Kind: kind, Stages: mask, Range: r})
		}
	}
}
