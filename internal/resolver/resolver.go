// Package resolver expands "@include" directives into a single merged
// program, detecting include cycles and duplicate module definitions
// (spec §4.3).
package resolver

import (
	"fmt"
	"path/filepath"

	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/lexer"
	"github.com/droe-lang/droe/internal/parser"
)

// Error is a resolver diagnostic.
type Error struct {
	Kind    string
	Message string
}

func (e Error) String() string { return e.Kind + ": " + e.Message }

// Loader reads the source text of an included file, given its resolved
// absolute (or search-root-relative) path.
type Loader func(path string) (string, error)

// Resolver expands @include references starting from a root program.
type Resolver struct {
	load        Loader
	searchRoots []string // DROE_HOME-style search roots; tried before relative resolution

	parsed       map[string]*ast.Program // resolved path -> parsed program, memoized
	includeStack []string                // paths currently being resolved, for cycle detection
	seenCycle    map[string]bool         // paths already reported as a cycle, reported once
	errors       []Error
	moduleNames  map[string]string // module name -> defining path, for duplicate detection
}

// New constructs a Resolver. searchRoots, if non-empty, are tried (in
// order) before resolving an include path relative to its including file;
// this implements DROE_HOME (spec §6.4).
func New(load Loader, searchRoots ...string) *Resolver {
	return &Resolver{
		load:        load,
		searchRoots: searchRoots,
		parsed:      make(map[string]*ast.Program),
		seenCycle:   make(map[string]bool),
		moduleNames: make(map[string]string),
	}
}

// Errors returns every diagnostic recorded during resolution.
func (r *Resolver) Errors() []Error { return r.errors }

func (r *Resolver) errorf(kind, format string, args ...interface{}) {
	r.errors = append(r.errors, Error{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Resolve expands root's includes (recursively) and returns a single merged
// program: root's own nodes/metadata, followed by every included module's
// top-level nodes in include order. rootPath identifies root for cycle
// tracking and relative-include resolution; it need not be a real path.
func (r *Resolver) Resolve(rootPath string, root *ast.Program) *ast.Program {
	r.parsed[r.canonicalize(rootPath)] = root
	r.includeStack = append(r.includeStack, r.canonicalize(rootPath))
	r.registerModuleNames(rootPath, root)

	merged := &ast.Program{File: root.File, Metadata: root.Metadata}
	merged.Nodes = append(merged.Nodes, root.Nodes...)
	merged.Nodes = append(merged.Nodes, r.expandIncludes(rootPath, root)...)

	r.includeStack = r.includeStack[:len(r.includeStack)-1]
	return merged
}

func (r *Resolver) expandIncludes(basePath string, prog *ast.Program) []ast.TopLevel {
	var nodes []ast.TopLevel
	for _, inc := range prog.Includes {
		resolvedPath := r.resolvePath(basePath, inc.Path)
		key := r.canonicalize(resolvedPath)

		if r.onStack(key) {
			if !r.seenCycle[key] {
				r.seenCycle[key] = true
				r.errorf("resolve.include_cycle", "include cycle detected at %q (included from %q)", inc.Path, basePath)
			}
			continue
		}

		included, ok := r.parsed[key]
		if !ok {
			src, err := r.load(resolvedPath)
			if err != nil {
				r.errorf("resolve.unknown_module", "cannot load include %q: %v", inc.Path, err)
				continue
			}
			l := lexer.New(resolvedPath, src)
			p := parser.New(resolvedPath, l)
			included = p.ParseProgram()
			for _, perr := range p.Errors() {
				r.errorf("parse."+perr.Kind, "%s: %s", resolvedPath, perr.Message)
			}
			r.parsed[key] = included
			r.registerModuleNames(resolvedPath, included)
		}

		r.includeStack = append(r.includeStack, key)
		nodes = append(nodes, included.Nodes...)
		nodes = append(nodes, r.expandIncludes(resolvedPath, included)...)
		r.includeStack = r.includeStack[:len(r.includeStack)-1]
	}
	return nodes
}

// registerModuleNames records every ModuleDecl's name for duplicate
// detection; spec §4.3: "Duplicate module definitions are an error."
func (r *Resolver) registerModuleNames(path string, prog *ast.Program) {
	for _, n := range prog.Nodes {
		mod, ok := n.(*ast.ModuleDecl)
		if !ok {
			continue
		}
		if prior, exists := r.moduleNames[mod.Name]; exists && prior != path {
			r.errorf("resolve.duplicate_definition", "module %q defined in both %q and %q", mod.Name, prior, path)
			continue
		}
		r.moduleNames[mod.Name] = path
	}
}

func (r *Resolver) onStack(key string) bool {
	for _, s := range r.includeStack {
		if s == key {
			return true
		}
	}
	return false
}

// resolvePath resolves an include path against the search roots first (if
// any are configured), falling back to resolution relative to the
// including file's directory.
func (r *Resolver) resolvePath(basePath, includePath string) string {
	if filepath.IsAbs(includePath) {
		return includePath
	}
	for _, root := range r.searchRoots {
		candidate := filepath.Join(root, includePath)
		if _, err := r.load(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join(filepath.Dir(basePath), includePath)
}

func (r *Resolver) canonicalize(path string) string {
	return filepath.Clean(path)
}
