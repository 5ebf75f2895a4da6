// Command cascli is a maintenance tool for document store backends: raw
// put/get of blocks and bundle-based transfer between stores.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/bundle"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/casregistry"

	_ "github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/grpccas"
	_ "github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/ipfs"
	_ "github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "put":
		return cmdPut(args[1:], out, errOut)
	case "get":
		return cmdGet(args[1:], out, errOut)
	case "export":
		return cmdExport(args[1:], out, errOut)
	case "import":
		return cmdImport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "cascli: document store maintenance tool")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cascli put --backend localfs --localfs-dir <dir> <file>")
	fmt.Fprintln(w, "  cascli get --backend localfs --localfs-dir <dir> --cid <cid> [--out <file>]")
	fmt.Fprintln(w, "  cascli export --backend <name> [backend flags] --cid <cid> [--cid ...] --out <bundle.tar>")
	fmt.Fprintln(w, "  cascli import --backend <name> [backend flags] <bundle.tar>")
	fmt.Fprintln(w, "  cascli put --backend grpc --grpc-target <host:port> <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - blocks are raw CIDv1 + sha2-256, the same addressing used for published")
	fmt.Fprintln(w, "    certificate documents")
	fmt.Fprintln(w, "  - export/import move document blocks between stores as deterministic TAR")
	fmt.Fprintln(w, "    bundles, validating every block against its CID")
	fmt.Fprintln(w, "  - grpc backend talks to acadledgerd (or any CAS gRPC server)")
}

type commonFlags struct {
	backend      string
	listBackends bool
}

func (c *commonFlags) add(fs *flag.FlagSet) {
	fs.StringVar(&c.backend, "backend", "localfs", "Document store backend name")
	fs.BoolVar(&c.listBackends, "list-backends", false, "List supported backends and exit")
	casregistry.RegisterFlags(fs, casregistry.UsageCLI)
}

func (c *commonFlags) openCAS() (storage.CAS, func() error, error) {
	return casregistry.Open(c.backend, casregistry.UsageCLI)
}

func printBackends(w io.Writer) {
	for _, b := range casregistry.List(casregistry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(w, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Name, b.Description)
	}
}

type multiString []string

func (s *multiString) String() string { return strings.Join(*s, ",") }
func (s *multiString) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: cascli put [common flags] <file>")
		return 2
	}

	cas, closeFn, err := common.openCAS()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	p := fs.Arg(0)
	b, err := os.ReadFile(p)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(p), err)
		return 1
	}
	id, err := cas.Put(b)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id.String())
	return 0
}

func cmdGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var cidStr string
	var outPath string
	fs.StringVar(&cidStr, "cid", "", "CID to fetch")
	fs.StringVar(&outPath, "out", "", "Output file (optional; default stdout)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if cidStr == "" {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: cascli get [common flags] --cid <cid> [--out <file>]")
		return 2
	}

	cas, closeFn, err := common.openCAS()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	id, err := cid.Decode(cidStr)
	if err != nil {
		fmt.Fprintln(errOut, storage.ErrInvalidCID)
		return 1
	}

	b, err := cas.Get(id)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	if outPath == "" {
		_, _ = out.Write(b)
		return 0
	}
	if err := os.WriteFile(outPath, b, 0o600); err != nil {
		fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
		return 1
	}
	return 0
}

func cmdExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var cidStrs multiString
	var outPath string
	fs.Var(&cidStrs, "cid", "Document CID to export (repeatable)")
	fs.StringVar(&outPath, "out", "", "Output bundle file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if len(cidStrs) == 0 {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
		return 2
	}

	ids := make([]cid.Cid, 0, len(cidStrs))
	for _, s := range cidStrs {
		id, err := cid.Decode(s)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --cid %q: %v\n", s, err)
			return 2
		}
		ids = append(ids, id)
	}

	cas, closeFn, err := common.openCAS()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(errOut, "create %s: %v\n", outPath, err)
		return 1
	}
	if err := bundle.Export(f, cas, ids, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(errOut, "close %s: %v\n", outPath, err)
		return 1
	}
	fmt.Fprintf(out, "exported %d block(s) to %s\n", len(ids), outPath)
	return 0
}

func cmdImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var ignoreUnknown bool
	fs.BoolVar(&ignoreUnknown, "ignore-unknown", false, "Skip unknown bundle entries instead of failing")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: cascli import [common flags] <bundle.tar>")
		return 2
	}

	cas, closeFn, err := common.openCAS()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open %s: %v\n", fs.Arg(0), err)
		return 1
	}
	defer f.Close()

	if err := bundle.ImportWithOptions(f, cas, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown}); err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, "import OK")
	return 0
}
