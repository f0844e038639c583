// Package versionscript reads linker version scripts and extracts the
// symbols they export, split into functions and global variables, with
// wildcard declarations kept apart as patterns.
package versionscript

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/lib/fsext"
)

// APICurrent is the API level that includes every symbol, including the
// ones tagged as future.
const APICurrent = "current"

//nolint:gochecknoglobals
var (
	knownArches = map[string]bool{
		"arm": true, "arm64": true, "x86": true, "x86_64": true,
		"riscv64": true, "mips": true, "mips64": true,
	}
	excludedTags = map[string]bool{
		"platform-only": true, "apex": true, "systemapi": true, "llndk": true,
	}
	skippedBlockSuffixes = []string{"_PRIVATE", "_PLATFORM"}
)

// Result holds the exported symbols declared by a version script.
type Result struct {
	Functions         map[string]abi.ElfFunction
	GlobalVars        map[string]abi.ElfObject
	FunctionPatterns  []string
	GlobalVarPatterns []string
}

// Parser parses version scripts for one target architecture and API level.
type Parser struct {
	arch  string
	api   int
	isCur bool
}

// NewParser returns a Parser for arch and api. An empty api or "current"
// selects every API level. An empty arch disables architecture filtering.
func NewParser(arch, api string) (*Parser, error) {
	p := &Parser{arch: arch, api: math.MaxInt}
	switch api {
	case "", APICurrent:
		p.isCur = true
	default:
		level, err := strconv.Atoi(api)
		if err != nil {
			return nil, fmt.Errorf("invalid API level %q: must be a number or %q", api, APICurrent)
		}
		p.api = level
	}
	return p, nil
}

// ParseFile reads and parses the version script at path.
func (p *Parser) ParseFile(fs fsext.Fs, path string) (*Result, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open version script: %w", err)
	}
	defer func() { _ = f.Close() }()

	res, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Parse parses a version script from r.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	toks, tags, err := tokenize(r)
	if err != nil {
		return nil, err
	}

	st := &parseState{
		Parser: p,
		toks:   toks,
		tags:   tags,
		res: &Result{
			Functions:  make(map[string]abi.ElfFunction),
			GlobalVars: make(map[string]abi.ElfObject),
		},
		funcPatterns: make(map[string]struct{}),
		varPatterns:  make(map[string]struct{}),
	}
	if err := st.parse(); err != nil {
		return nil, err
	}

	st.res.FunctionPatterns = sortedSet(st.funcPatterns)
	st.res.GlobalVarPatterns = sortedSet(st.varPatterns)
	return st.res, nil
}

type tokenKind uint8

const (
	tokWord tokenKind = iota
	tokString
	tokLBrace
	tokRBrace
	tokSemicolon
	tokColon
)

type token struct {
	kind tokenKind
	text string
	line int
}

// tokenize splits the script into tokens and collects the `#` comment tags
// of every line.
func tokenize(r io.Reader) ([]token, map[int][]string, error) {
	var toks []token
	tags := make(map[int][]string)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			if t := strings.Fields(text[i+1:]); len(t) > 0 {
				tags[line] = t
			}
			text = text[:i]
		}

		for pos := 0; pos < len(text); {
			c := text[pos]
			switch {
			case c == ' ' || c == '\t' || c == '\r':
				pos++
			case c == '{':
				toks = append(toks, token{tokLBrace, "{", line})
				pos++
			case c == '}':
				toks = append(toks, token{tokRBrace, "}", line})
				pos++
			case c == ';':
				toks = append(toks, token{tokSemicolon, ";", line})
				pos++
			case c == ':':
				toks = append(toks, token{tokColon, ":", line})
				pos++
			case c == '"':
				end := strings.IndexByte(text[pos+1:], '"')
				if end < 0 {
					return nil, nil, fmt.Errorf("line %d: unterminated string", line)
				}
				toks = append(toks, token{tokString, text[pos+1 : pos+1+end], line})
				pos += end + 2
			default:
				end := pos
				for end < len(text) && !strings.ContainsRune(" \t\r{};:\"", rune(text[end])) {
					end++
				}
				toks = append(toks, token{tokWord, text[pos:end], line})
				pos = end
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return toks, tags, nil
}

type parseState struct {
	*Parser
	toks []token
	tags map[int][]string
	pos  int

	res          *Result
	funcPatterns map[string]struct{}
	varPatterns  map[string]struct{}
}

func (st *parseState) peek(offset int) (token, bool) {
	if st.pos+offset >= len(st.toks) {
		return token{}, false
	}
	return st.toks[st.pos+offset], true
}

func (st *parseState) next() (token, bool) {
	t, ok := st.peek(0)
	if ok {
		st.pos++
	}
	return t, ok
}

func (st *parseState) expect(kind tokenKind, what string) (token, error) {
	t, ok := st.next()
	if !ok {
		return t, fmt.Errorf("unexpected end of file, expected %s", what)
	}
	if t.kind != kind {
		return t, fmt.Errorf("line %d: expected %s, found %q", t.line, what, t.text)
	}
	return t, nil
}

func (st *parseState) parse() error {
	for {
		t, ok := st.peek(0)
		if !ok {
			return nil
		}

		tag := ""
		switch t.kind {
		case tokWord:
			tag = t.text
			st.pos++
		case tokLBrace:
		default:
			return fmt.Errorf("line %d: expected a version tag or '{', found %q", t.line, t.text)
		}
		if _, err := st.expect(tokLBrace, "'{'"); err != nil {
			return err
		}
		if err := st.parseBlock(skipBlock(tag)); err != nil {
			return err
		}
	}
}

func skipBlock(tag string) bool {
	for _, suffix := range skippedBlockSuffixes {
		if strings.HasSuffix(tag, suffix) {
			return true
		}
	}
	return false
}

// parseBlock consumes a version node up to and including its closing `};`
// (or `} PARENT;`).
func (st *parseState) parseBlock(skip bool) error {
	global := true
	for {
		t, ok := st.next()
		if !ok {
			return fmt.Errorf("unexpected end of file, unterminated version block")
		}

		switch t.kind {
		case tokRBrace:
			for {
				t, ok = st.next()
				if !ok {
					return fmt.Errorf("unexpected end of file, expected ';' after '}'")
				}
				if t.kind == tokSemicolon {
					return nil
				}
				if t.kind != tokWord {
					return fmt.Errorf("line %d: expected ';' after '}', found %q", t.line, t.text)
				}
			}
		case tokWord:
			if n, ok := st.peek(0); ok && n.kind == tokColon {
				st.pos++
				switch t.text {
				case "global":
					global = true
				case "local":
					global = false
				default:
					return fmt.Errorf("line %d: unknown section %q", t.line, t.text)
				}
				continue
			}
			if t.text == "extern" {
				if err := st.parseExtern(skip || !global); err != nil {
					return err
				}
				continue
			}
			if _, err := st.expect(tokSemicolon, "';' after symbol"); err != nil {
				return err
			}
			if !skip && global {
				st.addSymbol(t.text, t.line)
			}
		case tokString:
			if _, err := st.expect(tokSemicolon, "';' after symbol"); err != nil {
				return err
			}
			if !skip && global {
				st.addSymbol(t.text, t.line)
			}
		default:
			return fmt.Errorf("line %d: unexpected %q", t.line, t.text)
		}
	}
}

// parseExtern consumes an `extern "LANG" { ... };` block.
func (st *parseState) parseExtern(skip bool) error {
	if _, err := st.expect(tokString, "language string after extern"); err != nil {
		return err
	}
	if _, err := st.expect(tokLBrace, "'{' after extern language"); err != nil {
		return err
	}
	for {
		t, ok := st.next()
		if !ok {
			return fmt.Errorf("unexpected end of file, unterminated extern block")
		}
		switch t.kind {
		case tokRBrace:
			_, err := st.expect(tokSemicolon, "';' after extern block")
			return err
		case tokWord, tokString:
			if _, err := st.expect(tokSemicolon, "';' after symbol"); err != nil {
				return err
			}
			if !skip {
				st.addSymbol(t.text, t.line)
			}
		default:
			return fmt.Errorf("line %d: unexpected %q in extern block", t.line, t.text)
		}
	}
}

type symbolTags struct {
	isVar    bool
	isWeak   bool
	excluded bool
}

func (st *parseState) evalTags(line int) symbolTags {
	var res symbolTags
	var arches []string
	introduced, archIntroduced := -1, -1
	future := false

	for _, tag := range st.tags[line] {
		switch {
		case tag == "var":
			res.isVar = true
		case tag == "weak":
			res.isWeak = true
		case tag == "future":
			future = true
		case excludedTags[tag]:
			res.excluded = true
		case knownArches[tag]:
			arches = append(arches, tag)
		case strings.HasPrefix(tag, "introduced="):
			if v, err := strconv.Atoi(strings.TrimPrefix(tag, "introduced=")); err == nil {
				introduced = v
			}
		case st.arch != "" && strings.HasPrefix(tag, "introduced-"+st.arch+"="):
			if v, err := strconv.Atoi(strings.TrimPrefix(tag, "introduced-"+st.arch+"=")); err == nil {
				archIntroduced = v
			}
		}
	}

	if st.arch != "" && len(arches) > 0 {
		found := false
		for _, a := range arches {
			if a == st.arch {
				found = true
				break
			}
		}
		if !found {
			res.excluded = true
		}
	}
	if archIntroduced >= 0 {
		introduced = archIntroduced
	}
	if introduced >= 0 && st.api < introduced {
		res.excluded = true
	}
	if future && !st.isCur {
		res.excluded = true
	}
	return res
}

func (st *parseState) addSymbol(name string, line int) {
	tags := st.evalTags(line)
	if tags.excluded {
		return
	}

	binding := abi.BindingGlobal
	if tags.isWeak {
		binding = abi.BindingWeak
	}

	isPattern := strings.Contains(name, "*")
	switch {
	case tags.isVar && isPattern:
		st.varPatterns[name] = struct{}{}
	case tags.isVar:
		st.res.GlobalVars[name] = abi.ElfObject{Name: name, Binding: binding}
	case isPattern:
		st.funcPatterns[name] = struct{}{}
	default:
		st.res.Functions[name] = abi.ElfFunction{Name: name, Binding: binding}
	}
}

func sortedSet(s map[string]struct{}) []string {
	res := make([]string, 0, len(s))
	for k := range s {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}
