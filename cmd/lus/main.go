package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/lus-lang/lus/ascii"
	"github.com/lus-lang/lus/ast"
	"github.com/lus-lang/lus/bundle"
	"github.com/lus-lang/lus/bytecode"
	"github.com/lus-lang/lus/format"
	"github.com/lus-lang/lus/internal/rtlog"
	"github.com/lus-lang/lus/lint"
	"github.com/lus-lang/lus/parser"
	"github.com/lus-lang/lus/pledge"
)

const version = "Lus 0.4"

// theme colors CLI diagnostics; swapped for PlainTheme when stderr is
// not a terminal.
var theme = ascii.DefaultTheme

func errorf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, ascii.Color(theme.Error, "lus: ")+fmt.Sprintf(format, args...))
}

const defaultWritePermission = 0755 // bundled outputs are executables

// stringList is a repeatable flag (-l, -P, --include).
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type args struct {
	stmt        *string
	interactive *bool
	showVersion *bool
	noEnv       *bool
	warnings    *bool
	pedantic    *bool

	astGraph   *string
	astJSON    *string
	standalone *string

	indentWidth  *int
	maxLineWidth *int

	libs     stringList
	pledges  stringList
	includes stringList

	rest []string
}

func readArgs(argv []string) (*args, error) {
	fs := flag.NewFlagSet("lus", flag.ContinueOnError)
	a := &args{
		stmt:        fs.String("e", "", "Execute the given statement"),
		interactive: fs.Bool("i", false, "Drop into an interactive shell"),
		showVersion: fs.Bool("v", false, "Print version information"),
		noEnv:       fs.Bool("E", false, "Ignore environment preambles"),
		warnings:    fs.Bool("W", false, "Enable warnings"),
		pedantic:    fs.Bool("Wpedantic", false, "Enable pedantic style warnings"),

		// Debugging Options

		astGraph: fs.String("ast-graph", "", "Write the chunk's AST as Graphviz DOT to the given file"),
		astJSON:  fs.String("ast-json", "", "Write the chunk's AST as JSON to the given file"),

		// Deployment

		standalone: fs.String("standalone", "", "Bundle the given entrypoint into a self-contained executable"),
		includes:   stringList{},

		// Formatting Options

		indentWidth:  fs.Int("indent-width", 2, "Indent width used by the format command"),
		maxLineWidth: fs.Int("max-line-width", 100, "Maximum line width used by the format command"),
	}
	fs.Var(&a.libs, "l", "Require module `mod` (or `g=mod`) before running")
	fs.Var(&a.pledges, "P", "Grant a permission (`name`, `name=value`, or `name:sub=value`)")
	fs.Var(&a.pledges, "pledge", "Alias of -P")
	fs.Var(&a.includes, "include", "Add `path[:alias]` to the module search path")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	a.rest = fs.Args()
	return a, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		theme = ascii.PlainTheme
	}
	argv := os.Args[1:]

	// A bundled executable carries its own argument vector; the normal
	// option pipeline then sees the preserved flags as if the user had
	// typed them.
	var bundled *bundle.Index
	if exe, err := os.Executable(); err == nil {
		if idx, err := bundle.Load(exe); err == nil {
			bundled = idx
			argv = bundled.SynthesizeArgv(os.Args[0], os.Args[1:])[1:]
		}
	}

	a, err := readArgs(argv)
	if err != nil {
		return 1
	}

	if *a.showVersion {
		fmt.Println(version)
		if len(a.rest) == 0 && *a.stmt == "" && !*a.interactive {
			return 0
		}
	}

	if *a.pedantic {
		*a.warnings = true
	}

	reg := pledge.New(nil)
	reg.RegisterGranter("fs", pledge.FSGranter())
	reg.RegisterGranter("net", pledge.URLGranter())
	for _, p := range a.pledges {
		if err := applyPledge(reg, p); err != nil {
			errorf("%s", err)
			return 1
		}
	}

	// Subcommand dispatch: `format` renders sources, everything else is
	// `run` (the default, also accepted explicitly).
	rest := a.rest
	command := "run"
	if len(rest) > 0 && (rest[0] == "run" || rest[0] == "format") {
		command = rest[0]
		rest = rest[1:]
	}

	if command == "format" {
		return runFormat(a, rest)
	}

	if !*a.noEnv {
		if preamble, name := envPreamble(); preamble != "" {
			if _, err := compile(preamble, name, a); err != nil {
				errorf("%s", err)
				return 1
			}
		}
	}

	for _, mod := range a.libs {
		name := mod
		if i := strings.IndexByte(mod, '='); i >= 0 {
			name = mod[i+1:]
		}
		if err := loadModule(name, a, bundled); err != nil {
			errorf("%s", err)
			return 1
		}
	}

	if *a.standalone != "" {
		if err := buildStandalone(*a.standalone, a); err != nil {
			errorf("%s", err)
			return 1
		}
		return 0
	}

	if *a.stmt != "" {
		if _, err := compile(*a.stmt, "=(command line)", a); err != nil {
			errorf("%s", err)
			return 1
		}
	}

	script, scriptGiven := pickScript(rest)
	if scriptGiven {
		source, chunkName, err := readScript(script, bundled)
		if err != nil {
			errorf("%s", err)
			return 1
		}
		if _, err := compile(source, chunkName, a); err != nil {
			errorf("%s", err)
			return 1
		}
	}

	if *a.interactive || (!scriptGiven && *a.stmt == "" && !*a.showVersion) {
		return repl(a)
	}
	return 0
}

// pickScript returns the script path from the residual argument list.
// "-" selects stdin; a lone "--" has already been consumed by the flag
// parser.
func pickScript(rest []string) (string, bool) {
	if len(rest) == 0 {
		return "", false
	}
	return rest[0], true
}

func readScript(path string, bundled *bundle.Index) (source, chunkName string, err error) {
	if bundled != nil {
		if data, berr := bundled.GetFile(path); berr == nil {
			return string(data), "@" + path, nil
		}
	}
	if path == "-" {
		data, rerr := readAll(os.Stdin)
		return data, "=stdin", rerr
	}
	data, rerr := os.ReadFile(path)
	if rerr != nil {
		return "", "", rerr
	}
	return string(data), "@" + path, nil
}

func readAll(f *os.File) (string, error) {
	var b strings.Builder
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		b.WriteString(sc.Text())
		b.WriteByte('\n')
	}
	return b.String(), sc.Err()
}

// compile parses source into a fresh chunk, honoring the warning and
// AST-dump flags along the way.
func compile(source, chunkName string, a *args) (*bytecode.Chunk, error) {
	chunk := bytecode.NewChunk()
	wantAST := *a.pedantic || *a.astGraph != "" || *a.astJSON != ""
	container, err := parser.Parse(source, chunk, parser.Options{
		ChunkName:  chunkName,
		CaptureAST: wantAST,
	})
	if err != nil {
		return nil, err
	}

	if *a.astGraph != "" {
		if err := os.WriteFile(*a.astGraph, []byte(ast.DOT(container)), 0644); err != nil {
			return nil, err
		}
	}
	if *a.astJSON != "" {
		if err := os.WriteFile(*a.astJSON, ast.JSON(container), 0644); err != nil {
			return nil, err
		}
	}

	if *a.pedantic {
		sink := &lint.CollectSink{}
		lint.Lint(container, sink)
		for _, w := range sink.Warnings {
			rtlog.LogWarning("lint", w.Line, string(w.Rule), w.Message)
		}
	}
	return chunk, nil
}

// loadModule resolves a module name against the bundle (if running
// bundled) and the --include path list, then compiles it.
func loadModule(name string, a *args, bundled *bundle.Index) error {
	if bundled != nil {
		if data, err := bundled.GetFile(name); err == nil {
			_, cerr := compile(string(data), "@"+name, a)
			return cerr
		}
	}
	for _, inc := range a.includes {
		dir, alias := splitInclude(inc)
		if alias != "" && alias != name && !strings.HasPrefix(name, alias+".") {
			continue
		}
		rel := name
		if alias != "" {
			rel = strings.TrimPrefix(strings.TrimPrefix(name, alias), ".")
		}
		candidate := filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(rel, ".", "/"))+".lus")
		if data, err := os.ReadFile(candidate); err == nil {
			_, cerr := compile(string(data), "@"+candidate, a)
			return cerr
		}
	}
	if data, err := os.ReadFile(strings.ReplaceAll(name, ".", "/") + ".lus"); err == nil {
		_, cerr := compile(string(data), "@"+name, a)
		return cerr
	}
	return fmt.Errorf("module %q not found", name)
}

func splitInclude(inc string) (dir, alias string) {
	if i := strings.LastIndexByte(inc, ':'); i > 1 { // skip windows drive letters
		return inc[:i], inc[i+1:]
	}
	return inc, ""
}

// buildStandalone compiles the entrypoint plus every --include'd module
// and appends them, with an index, to a copy of the running executable.
func buildStandalone(entry string, a *args) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	w := bundle.NewWriter(1, moduleName(entry), preservedArgs(a))

	source, err := os.ReadFile(entry)
	if err != nil {
		return err
	}
	chunk, err := compile(string(source), "@"+entry, a)
	if err != nil {
		return err
	}
	w.AddFile(moduleName(entry), chunk.Encode())

	for _, inc := range a.includes {
		dir, alias := splitInclude(inc)
		if err := addIncludeTree(w, dir, alias, a); err != nil {
			return err
		}
	}

	out := strings.TrimSuffix(filepath.Base(entry), filepath.Ext(entry)) + ".out"
	host, err := os.Open(exe)
	if err != nil {
		return err
	}
	defer host.Close()
	f, err := os.OpenFile(out, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, defaultWritePermission)
	if err != nil {
		return err
	}
	defer f.Close()
	return w.WriteTo(f, host)
}

// preservedArgs records the pledge and warning flags so the bundled
// binary re-applies them at startup.
func preservedArgs(a *args) []string {
	var out []string
	for _, p := range a.pledges {
		out = append(out, "-P", p)
	}
	if *a.warnings {
		out = append(out, "-W")
	}
	if *a.pedantic {
		out = append(out, "-Wpedantic")
	}
	return out
}

func addIncludeTree(w *bundle.Writer, dir, alias string, a *args) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != ".lus" {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := strings.ReplaceAll(strings.TrimSuffix(rel, ".lus"), string(filepath.Separator), ".")
		if alias != "" {
			name = alias + "." + name
		}
		source, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		chunk, err := compile(string(source), "@"+path, a)
		if err != nil {
			return err
		}
		w.AddFile(name, chunk.Encode())
		return nil
	})
}

func moduleName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func runFormat(a *args, rest []string) int {
	opts := format.Options{IndentWidth: *a.indentWidth, MaxLineWidth: *a.maxLineWidth}
	if len(rest) == 0 {
		rest = []string{"-"}
	}
	status := 0
	for _, path := range rest {
		source, chunkName, err := readScript(path, nil)
		if err != nil {
			errorf("%s", err)
			status = 1
			continue
		}
		out, err := format.Source(source, chunkName, opts)
		if err != nil {
			errorf("%s", err)
			status = 1
			continue
		}
		fmt.Print(out)
	}
	return status
}

// repl is a minimal line-at-a-time shell: each line is compiled and its
// first error, if any, reported, so it doubles as a syntax checker when
// no VM backend is linked in.
func repl(a *args) int {
	fmt.Println(version)
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return 0
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := compile(line, "=stdin", a); err != nil {
			fmt.Println(ascii.Color(theme.Error, "ERROR: ") + err.Error())
		}
	}
}

// envPreamble returns the LUS_INIT (or legacy LUA_INIT) preamble: a
// statement, or the contents of a file when prefixed with "@".
func envPreamble() (string, string) {
	for _, key := range []string{"LUS_INIT", "LUA_INIT"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		if strings.HasPrefix(v, "@") {
			data, err := os.ReadFile(v[1:])
			if err != nil {
				return "", ""
			}
			return string(data), "@" + v[1:]
		}
		return v, "=" + key
	}
	return "", ""
}

// applyPledge parses one -P argument: "name", "name=value", or
// "name:sub=value".
func applyPledge(reg *pledge.Registry, arg string) error {
	name, sub, value := arg, "", ""
	if i := strings.IndexByte(name, '='); i >= 0 {
		name, value = name[:i], name[i+1:]
	}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name, sub = name[:i], name[i+1:]
	}
	if name == "seal" {
		reg.Seal()
		return nil
	}
	return reg.Pledge(name, sub, value)
}
