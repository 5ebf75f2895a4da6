package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/bulk"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache/sqlitecache"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/identity"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/issuer"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger/grpcledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/metadata"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/reconcile"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/report"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/casconfig"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/casregistry"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/verify"

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
	case "issue":
		return cmdIssue(args[1:], out, errOut)
	case "revoke":
		return cmdFlip(ledgerRevoke, args[1:], out, errOut)
	case "reactivate":
		return cmdFlip(ledgerReactivate, args[1:], out, errOut)
	case "bulk":
		return cmdBulk(args[1:], out, errOut)
	case "sync":
		return cmdSync(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "report":
		return cmdReport(args[1:], out, errOut)
	case "doc-cid":
		return cmdDocCID(args[1:], out, errOut)
	case "code":
		return cmdCode(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
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
	fmt.Fprintln(w, "acadcert: academic certificate issuance, revocation, and verification CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  acadcert issue --local-id <id> --course-title <t> --academy-id <a> --student-name <n> --student-id <raw> [flags]")
	fmt.Fprintln(w, "  acadcert revoke --local-id <id> [flags]")
	fmt.Fprintln(w, "  acadcert reactivate --local-id <id> [flags]")
	fmt.Fprintln(w, "  acadcert bulk <revoke|reactivate> --chain-id <n> [--chain-id ...] [--workers <n>] [flags]")
	fmt.Fprintln(w, "  acadcert sync --local-id <id> [flags]")
	fmt.Fprintln(w, "  acadcert verify --chain-id <n> [--report] [--verifier-id <id>] [--signer <academy> [--signer-role <role>]] [flags]")
	fmt.Fprintln(w, "  acadcert report verify <file>")
	fmt.Fprintln(w, "  acadcert report cid <file>")
	fmt.Fprintln(w, "  acadcert doc-cid <file>")
	fmt.Fprintln(w, "  acadcert code new [--length <n>]")
	fmt.Fprintln(w, "  acadcert code prove --student-id <raw> --code <c> --salt <s> --hash <h>")
	fmt.Fprintln(w, "  acadcert key init --academy <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  acadcert key derive --academy <name> --role <role> [--force]")
	fmt.Fprintln(w, "  acadcert key list")
	fmt.Fprintln(w, "  acadcert key export --academy <name> [--role <role>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common flags:")
	fmt.Fprintln(w, "  --ledger <host:port>   registry gRPC target (default 127.0.0.1:7788)")
	fmt.Fprintln(w, "  --cache <file>         local SQLite cache database (default acadcert.db)")
	fmt.Fprintln(w, "  --backend <name>       document store backend (default localfs)")
	fmt.Fprintln(w, "  --store-config <file>  JSON store config; overrides --backend")
	fmt.Fprintln(w, "  --list-backends        list supported store backends and exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - issue prints the verification code and identity salt exactly once; they are")
	fmt.Fprintln(w, "    not recoverable afterwards")
	fmt.Fprintln(w, "  - --student-id-file reads the recipient identifier from a file instead of the")
	fmt.Fprintln(w, "    command line (keeps it out of shell history)")
	fmt.Fprintln(w, "  - verify --report prints a canonical signed report document to stdout")
	fmt.Fprintln(w, "  - key seeds live under ~/.acadcert/keys/<academy> (0600 files)")
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type uint64List []uint64

func (s *uint64List) String() string {
	parts := make([]string, len(*s))
	for i, v := range *s {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}

func (s *uint64List) Set(v string) error {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return err
	}
	*s = append(*s, n)
	return nil
}

// commonFlags carries the infrastructure wiring shared by the operational
// subcommands: registry target, cache path, and document store selection.
type commonFlags struct {
	ledgerTarget string
	cachePath    string
	backend      string
	storeConfig  string
	listBackends bool
	timeout      time.Duration
}

func (c *commonFlags) add(fs *flag.FlagSet) {
	fs.StringVar(&c.ledgerTarget, "ledger", "127.0.0.1:7788", "Registry gRPC target host:port")
	fs.StringVar(&c.cachePath, "cache", "acadcert.db", "Local SQLite cache database file")
	fs.StringVar(&c.backend, "backend", "localfs", "Document store backend name")
	fs.StringVar(&c.storeConfig, "store-config", "", "JSON store config file (overrides --backend)")
	fs.BoolVar(&c.listBackends, "list-backends", false, "List supported store backends and exit")
	fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "Overall operation timeout")
	casregistry.RegisterFlags(fs, casregistry.UsageCLI)
}

func (c *commonFlags) openLedger() (*grpcledger.Client, error) {
	return grpcledger.Dial(c.ledgerTarget, grpcledger.DialOptions{Timeout: 5 * time.Second})
}

func (c *commonFlags) openCache(errOut io.Writer) (*sqlitecache.Store, error) {
	log := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return sqlitecache.Open(c.cachePath, log)
}

func (c *commonFlags) openCAS() (storage.CAS, func() error, error) {
	if c.storeConfig != "" {
		cfg, err := casconfig.LoadFile(c.storeConfig)
		if err != nil {
			return nil, nil, err
		}
		return cfg.Open(casregistry.UsageCLI, "")
	}
	return casregistry.Open(c.backend, casregistry.UsageCLI)
}

func (c *commonFlags) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
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

func cmdIssue(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var localID string
	var courseTitle string
	var courseDescription string
	var modality string
	var hours int
	var language string
	var category string
	var skills stringList
	var academyID string
	var academyName string
	var department string
	var instructors stringList
	var studentName string
	var studentID string
	var studentIDFile string
	var wallet string
	var grade string
	var graduationDate string
	var expireHeight uint64
	var codeLength int

	fs.StringVar(&localID, "local-id", "", "Local certificate identifier")
	fs.StringVar(&courseTitle, "course-title", "", "Course title")
	fs.StringVar(&courseDescription, "course-description", "", "Course description")
	fs.StringVar(&modality, "modality", "", "Course modality (e.g. online, onsite)")
	fs.IntVar(&hours, "hours", 0, "Course duration in hours")
	fs.StringVar(&language, "language", "", "Course language")
	fs.StringVar(&category, "category", "", "Course category")
	fs.Var(&skills, "skill", "Skill covered by the course (repeatable)")
	fs.StringVar(&academyID, "academy-id", "", "Issuing academy identifier")
	fs.StringVar(&academyName, "academy-name", "", "Issuing academy display name")
	fs.StringVar(&department, "department", "", "Issuing department")
	fs.Var(&instructors, "instructor", "Course instructor (repeatable)")
	fs.StringVar(&studentName, "student-name", "", "Recipient display name")
	fs.StringVar(&studentID, "student-id", "", "Recipient private identifier (consumed transiently, never stored)")
	fs.StringVar(&studentIDFile, "student-id-file", "", "Read the recipient private identifier from a file")
	fs.StringVar(&wallet, "wallet", "", "Recipient wallet address")
	fs.StringVar(&grade, "grade", "", "Optional grade")
	fs.StringVar(&graduationDate, "graduation-date", "", "Graduation date (YYYY-MM-DD or unix seconds; default today)")
	fs.Uint64Var(&expireHeight, "expire-height", 0, "Expiration block height (0 = never expires)")
	fs.IntVar(&codeLength, "code-length", 0, "Verification code length (0 = default)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if localID == "" {
		fmt.Fprintln(errOut, "missing --local-id")
		return 2
	}
	if courseTitle == "" {
		fmt.Fprintln(errOut, "missing --course-title")
		return 2
	}
	if academyID == "" {
		fmt.Fprintln(errOut, "missing --academy-id")
		return 2
	}
	if studentName == "" {
		fmt.Fprintln(errOut, "missing --student-name")
		return 2
	}
	if studentID != "" && studentIDFile != "" {
		fmt.Fprintln(errOut, "conflicting flags: --student-id cannot be combined with --student-id-file")
		return 2
	}
	if studentIDFile != "" {
		b, err := os.ReadFile(studentIDFile)
		if err != nil {
			fmt.Fprintf(errOut, "read --student-id-file: %v\n", err)
			return 1
		}
		studentID = strings.TrimSpace(string(b))
	}
	if studentID == "" {
		fmt.Fprintln(errOut, "missing recipient identifier: use --student-id or --student-id-file")
		return 2
	}
	if wallet == "" {
		fmt.Fprintln(errOut, "missing --wallet")
		return 2
	}

	gradDate, err := parseGraduationDate(graduationDate)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --graduation-date: %v\n", err)
		return 2
	}

	cas, closeFn, err := common.openCAS()
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}
	reg, err := common.openLedger()
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return 1
	}
	defer reg.Close()
	store, err := common.openCache(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "cache: %v\n", err)
		return 1
	}
	defer store.Close()

	req := issuer.Request{
		LocalID: localID,
		Course: metadata.Course{
			Title:       courseTitle,
			Description: courseDescription,
			Modality:    modality,
			Hours:       hours,
			Language:    language,
			Category:    category,
			Skills:      skills,
		},
		Academy: metadata.Academy{
			ID:          academyID,
			Name:        academyName,
			Department:  department,
			Instructors: instructors,
		},
		StudentName:    studentName,
		RawIdentifier:  studentID,
		StudentWallet:  wallet,
		Grade:          grade,
		GraduationDate: gradDate,
		CodeLength:     codeLength,
	}
	if expireHeight != 0 {
		req.ExpirationHeight = &expireHeight
	}

	iss := &issuer.Issuer{
		Registry:  reg,
		Publisher: storage.CASStore{CAS: cas},
		Store:     store,
	}

	ctx, cancel := common.ctx()
	defer cancel()
	res, err := iss.Issue(ctx, req)
	if err != nil {
		if ledger.IsIndeterminate(err) {
			fmt.Fprintln(errOut, "issue outcome unknown: the transaction may still confirm; do not retry blindly")
		}
		fmt.Fprintf(errOut, "issue: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "Chain-ID: %d\n", res.ChainID)
	fmt.Fprintf(out, "Tx-ID: %s\n", res.TxID)
	fmt.Fprintf(out, "Metadata-URL: %s\n", res.MetadataURL)
	fmt.Fprintf(out, "Content-Digest: %s\n", res.ContentDigest)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "One-time disclosure (deliver to the recipient; not recoverable later):")
	fmt.Fprintf(out, "  Verification-Code: %s\n", res.VerificationCode)
	fmt.Fprintf(out, "  Identifier-Salt: %s\n", res.IdentifierSalt)
	fmt.Fprintf(out, "  Identifier-Hash: %s\n", res.IdentifierHash)
	return 0
}

func parseGraduationDate(s string) (int64, error) {
	if s == "" {
		return time.Now().UTC().Truncate(24 * time.Hour).Unix(), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, fmt.Errorf("want YYYY-MM-DD or unix seconds, got %q", s)
	}
	return t.Unix(), nil
}

type flipOp string

const (
	ledgerRevoke     flipOp = "revoke"
	ledgerReactivate flipOp = "reactivate"
)

func cmdFlip(op flipOp, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet(string(op), flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var localID string
	fs.StringVar(&localID, "local-id", "", "Local certificate identifier")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if localID == "" {
		fmt.Fprintln(errOut, "missing --local-id")
		return 2
	}

	reg, err := common.openLedger()
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return 1
	}
	defer reg.Close()
	store, err := common.openCache(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "cache: %v\n", err)
		return 1
	}
	defer store.Close()

	iss := &issuer.Issuer{Registry: reg, Store: store}

	ctx, cancel := common.ctx()
	defer cancel()

	var receipt ledger.TxReceipt
	switch op {
	case ledgerRevoke:
		receipt, err = iss.Revoke(ctx, localID)
	case ledgerReactivate:
		receipt, err = iss.Reactivate(ctx, localID)
	}
	if err != nil {
		if ledger.IsIndeterminate(err) {
			fmt.Fprintf(errOut, "%s outcome unknown: the transaction may still confirm; run 'acadcert sync --local-id %s' later\n", op, localID)
		}
		fmt.Fprintf(errOut, "%s: %v\n", op, err)
		return 1
	}

	if receipt.AlreadyInState {
		fmt.Fprintf(out, "already in requested state (tx %s)\n", receipt.TxID)
		return 0
	}
	fmt.Fprintf(out, "Tx-ID: %s\n", receipt.TxID)
	return 0
}

func cmdBulk(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: acadcert bulk <revoke|reactivate> --chain-id <n> [--chain-id ...]")
		return 2
	}

	var action bulk.Action
	switch args[0] {
	case "revoke":
		action = bulk.ActionRevoke
	case "reactivate":
		action = bulk.ActionReactivate
	default:
		fmt.Fprintf(errOut, "unknown bulk action: %s\n", args[0])
		return 2
	}

	fs := flag.NewFlagSet("bulk "+args[0], flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var chainIDs uint64List
	var workers int
	fs.Var(&chainIDs, "chain-id", "Certificate chain id (repeatable)")
	fs.IntVar(&workers, "workers", 1, "Number of parallel ledger submissions")

	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if len(chainIDs) == 0 {
		fmt.Fprintln(errOut, "missing --chain-id")
		return 2
	}

	reg, err := common.openLedger()
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return 1
	}
	defer reg.Close()

	coord := &bulk.Coordinator{Registry: reg, Workers: workers}

	ctx, cancel := common.ctx()
	defer cancel()
	rep, err := coord.Apply(ctx, action, chainIDs)
	if err != nil {
		fmt.Fprintf(errOut, "bulk %s: %v\n", action, err)
		return 2
	}

	fmt.Fprintf(out, "Succeeded: %d\n", rep.SuccessCount)
	fmt.Fprintf(out, "Failed: %d\n", rep.FailedCount)
	for _, id := range rep.AlreadyInState {
		fmt.Fprintf(out, "  already in state: %d\n", id)
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(out, "  failed: %d (%s) %s\n", e.ChainID, e.Kind, e.Message)
	}
	if rep.FailedCount > 0 {
		return 1
	}
	return 0
}

func cmdSync(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var localID string
	fs.StringVar(&localID, "local-id", "", "Local certificate identifier")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if localID == "" {
		fmt.Fprintln(errOut, "missing --local-id")
		return 2
	}

	reg, err := common.openLedger()
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return 1
	}
	defer reg.Close()
	store, err := common.openCache(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "cache: %v\n", err)
		return 1
	}
	defer store.Close()

	engine := &reconcile.Engine{Registry: reg, Store: store}

	ctx, cancel := common.ctx()
	defer cancel()
	res, err := engine.Sync(ctx, localID)
	if err != nil {
		fmt.Fprintf(errOut, "sync: %v\n", err)
		return 1
	}

	switch {
	case res.Stale:
		fmt.Fprintf(out, "skipped: ledger snapshot (height %d) older than last reconciliation\n", res.Height)
	case res.Changed:
		fmt.Fprintf(out, "reconciled: status now %s (height %d)\n", res.Status, res.Height)
	default:
		fmt.Fprintf(out, "in sync: status %s (height %d)\n", res.Status, res.Height)
	}
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var chainID uint64
	var asReport bool
	var verifierID string
	var signerName string
	var signerRole string
	fs.Uint64Var(&chainID, "chain-id", 0, "Certificate chain id")
	fs.BoolVar(&asReport, "report", false, "Print a canonical report document instead of a summary")
	fs.StringVar(&verifierID, "verifier-id", "", "Verifier identity recorded in the report")
	fs.StringVar(&signerName, "signer", "", "Sign the report with a stored academy key")
	fs.StringVar(&signerRole, "signer-role", "", "When using --signer, use a derived role key")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if chainID == 0 {
		fmt.Fprintln(errOut, "missing --chain-id")
		return 2
	}
	if signerRole != "" && signerName == "" {
		fmt.Fprintln(errOut, "--signer-role requires --signer")
		return 2
	}
	if signerName != "" && !asReport {
		fmt.Fprintln(errOut, "--signer requires --report")
		return 2
	}

	cas, closeFn, err := common.openCAS()
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}
	reg, err := common.openLedger()
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return 1
	}
	defer reg.Close()

	v := &verify.Verifier{Registry: reg, Fetcher: storage.CASStore{CAS: cas}}

	ctx, cancel := common.ctx()
	defer cancel()
	verdict, err := v.Verify(ctx, chainID)
	if err != nil {
		if ledger.IsIndeterminate(err) {
			fmt.Fprintln(errOut, "verify: ledger unreachable; no verdict without ledger truth")
		}
		fmt.Fprintf(errOut, "verify: %v\n", err)
		return 1
	}

	if asReport {
		opts := report.RenderOptions{
			VerifierID: verifierID,
			VerifiedAt: time.Now().UTC(),
		}
		if signerName != "" {
			ks, err := ledger.OpenKeyStore("")
			if err != nil {
				fmt.Fprintf(errOut, "keys: %v\n", err)
				return 1
			}
			signer, err := ks.LoadSigner(signerName, signerRole)
			if err != nil {
				fmt.Fprintf(errOut, "load signer: %v\n", err)
				return 1
			}
			opts.VerifierKey = signer.PublicKey()
			opts.PrivateKey = signer.SigningKey()
			if opts.VerifierID == "" {
				opts.VerifierID = signer.Principal()
			}
		}
		_, _ = out.Write(report.Render(verdict, opts))
		if !verdict.OverallValid {
			return 1
		}
		return 0
	}

	printVerdict(out, verdict)
	if !verdict.OverallValid {
		return 1
	}
	return 0
}

func printVerdict(out io.Writer, verdict verify.Verdict) {
	fmt.Fprintf(out, "Chain-ID: %d\n", verdict.Evidence.ChainID)
	fmt.Fprintf(out, "Current-Height: %d\n", verdict.Evidence.CurrentHeight)
	fmt.Fprintf(out, "On-Chain: %t\n", verdict.OnChainExists)
	fmt.Fprintf(out, "Revoked: %t\n", verdict.Revoked)
	fmt.Fprintf(out, "Expired: %t\n", verdict.Expired)
	fmt.Fprintf(out, "Digest-Matches: %t\n", verdict.DigestMatches)
	fmt.Fprintf(out, "Content-Outcome: %s\n", verdict.Evidence.ContentOutcome)
	if verdict.Evidence.ContentError != "" {
		fmt.Fprintf(out, "Content-Error: %s\n", verdict.Evidence.ContentError)
	}
	fmt.Fprintf(out, "Valid: %t\n", verdict.OverallValid)
}

func cmdReport(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: acadcert report <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: verify, cid")
		return 2
	}
	switch args[0] {
	case "verify":
		fs := flag.NewFlagSet("report verify", flag.ContinueOnError)
		fs.SetOutput(errOut)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: acadcert report verify <file>")
			return 2
		}
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read report: %v\n", err)
			return 1
		}
		signed, err := report.VerifySignature(b)
		if err != nil {
			fmt.Fprintf(errOut, "invalid report: %v\n", err)
			return 1
		}
		if !signed {
			fmt.Fprintln(out, "valid report (unsigned)")
			return 0
		}
		fmt.Fprintln(out, "valid signed report")
		return 0
	case "cid":
		fs := flag.NewFlagSet("report cid", flag.ContinueOnError)
		fs.SetOutput(errOut)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: acadcert report cid <file>")
			return 2
		}
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read report: %v\n", err)
			return 1
		}
		doc, err := report.NewDocumentFromBytes(b)
		if err != nil {
			fmt.Fprintf(errOut, "invalid report: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, doc.CID)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown report subcommand: %s\n", args[0])
		return 2
	}
}

// cmdDocCID recomputes the canonical digest and CID of a certificate
// document file, for checking published content by hand.
func cmdDocCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("doc-cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: acadcert doc-cid <file>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read document: %v\n", err)
		return 1
	}
	doc, err := metadata.Parse(b)
	if err != nil {
		fmt.Fprintf(errOut, "invalid document: %v\n", err)
		return 1
	}
	canonical, err := metadata.Canonicalize(doc)
	if err != nil {
		fmt.Fprintf(errOut, "canonicalize: %v\n", err)
		return 1
	}
	id, err := metadata.CID(canonical)
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Digest: %s\n", metadata.DigestHex(canonical))
	fmt.Fprintf(out, "CID: %s\n", id)
	return 0
}

func cmdCode(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: acadcert code <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: new, prove")
		return 2
	}
	switch args[0] {
	case "new":
		fs := flag.NewFlagSet("code new", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var length int
		fs.IntVar(&length, "length", 0, "Verification code length (0 = default)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		code, err := identity.GenerateVerificationCode(length)
		if err != nil {
			fmt.Fprintf(errOut, "generate code: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, code)
		return 0
	case "prove":
		fs := flag.NewFlagSet("code prove", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var studentID string
		var studentIDFile string
		var code string
		var salt string
		var hash string
		fs.StringVar(&studentID, "student-id", "", "Recipient private identifier")
		fs.StringVar(&studentIDFile, "student-id-file", "", "Read the recipient private identifier from a file")
		fs.StringVar(&code, "code", "", "Verification code disclosed at issuance")
		fs.StringVar(&salt, "salt", "", "Identifier salt disclosed at issuance")
		fs.StringVar(&hash, "hash", "", "Identity hash recorded in the certificate document")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if studentID != "" && studentIDFile != "" {
			fmt.Fprintln(errOut, "conflicting flags: --student-id cannot be combined with --student-id-file")
			return 2
		}
		if studentIDFile != "" {
			b, err := os.ReadFile(studentIDFile)
			if err != nil {
				fmt.Fprintf(errOut, "read --student-id-file: %v\n", err)
				return 1
			}
			studentID = strings.TrimSpace(string(b))
		}
		if studentID == "" || code == "" || salt == "" || hash == "" {
			fmt.Fprintln(errOut, "usage: acadcert code prove --student-id <raw> --code <c> --salt <s> --hash <h>")
			return 2
		}
		if identity.HashIdentifier(studentID, code, salt) != hash {
			fmt.Fprintln(out, "NO MATCH")
			return 1
		}
		fmt.Fprintln(out, "MATCH")
		return 0
	default:
		fmt.Fprintf(errOut, "unknown code subcommand: %s\n", args[0])
		return 2
	}
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "acadcert key: local academy key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  acadcert key init --academy <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  acadcert key derive --academy <name> --role <role> [--force]")
	fmt.Fprintln(w, "  acadcert key list")
	fmt.Fprintln(w, "  acadcert key export --academy <name> [--role <role>]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var academy string
	var seedHex string
	var force bool
	fs.StringVar(&academy, "academy", "", "Academy name (directory under ~/.acadcert/keys)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if academy == "" {
		fmt.Fprintln(errOut, "missing --academy")
		return 2
	}

	ks, err := ledger.OpenKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}

	var seed []byte
	if seedHex != "" {
		seed, err = ledger.ParseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	publicKey, path, err := ks.InitRootKey(academy, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created root key: %s\n", publicKey)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var academy string
	var role string
	var force bool
	fs.StringVar(&academy, "academy", "", "Academy name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. issuer, registrar)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if academy == "" {
		fmt.Fprintln(errOut, "missing --academy")
		return 2
	}
	if role == "" {
		fmt.Fprintln(errOut, "missing --role")
		return 2
	}

	ks, err := ledger.OpenKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	publicKey, path, err := ks.DeriveRoleKey(academy, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created role key: %s\n", publicKey)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := ledger.OpenKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n", e.Academy)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var academy string
	var role string
	fs.StringVar(&academy, "academy", "", "Academy name")
	fs.StringVar(&role, "role", "", "Optional role (if set, exports the derived role key)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if academy == "" {
		fmt.Fprintln(errOut, "missing --academy")
		return 2
	}

	ks, err := ledger.OpenKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	signer, err := ks.LoadSigner(academy, role)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(errOut, "no such key: %s\n", academy)
			return 1
		}
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, signer.PublicKey())
	return 0
}
