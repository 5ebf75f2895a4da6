// Command acadledgerd serves the document store and a development registry
// over gRPC. It holds the academy signing key; clients submit plain requests
// and the daemon signs every ledger transaction locally.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"

	"google.golang.org/grpc"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger/grpcledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger/memledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/casregistry"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/grpccas"

	_ "github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/ipfs"
	_ "github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/localfs"
)

func main() {
	fs := flag.NewFlagSet("acadledgerd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7788", "listen address")
	backend := fs.String("backend", "localfs", "document store backend name")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	academy := fs.String("academy", "", "Academy whose key signs ledger transactions")
	keyRole := fs.String("key-role", "", "Optional derived role key (default: root key)")
	keyDir := fs.String("key-dir", "", "Key directory (default ~/.acadcert/keys)")
	funds := fs.Uint64("funds", 1_000_000, "Development chain starting funds for the academy")
	txCost := fs.Uint64("tx-cost", 1, "Development chain per-transaction cost")
	startHeight := fs.Uint64("start-height", 0, "Development chain starting block height")

	casregistry.RegisterFlags(fs, casregistry.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range casregistry.List(casregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *academy == "" {
		log.Error("missing --academy")
		os.Exit(2)
	}
	ks, err := ledger.OpenKeyStore(*keyDir)
	if err != nil {
		log.Error("open key store", "err", err)
		os.Exit(2)
	}
	signer, err := ks.LoadSigner(*academy, *keyRole)
	if err != nil {
		log.Error("load signer", "academy", *academy, "err", err)
		os.Exit(2)
	}

	cas, closeFn, err := casregistry.Open(*backend, casregistry.UsageDaemon)
	if err != nil {
		log.Error("open store backend", "backend", *backend, "err", err)
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}

	chain := memledger.New(memledger.Options{TxCost: *txCost, StartHeight: *startHeight})
	chain.RegisterAcademy(signer.Principal(), *funds)

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Error("listen", "addr", *listen, "err", err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpccas.RegisterCASServer(s, &grpccas.Server{CAS: cas})
	grpcledger.RegisterRegistryServer(s, &grpcledger.Server{Registry: chain.Client(signer)})

	log.Info("acadledgerd listening",
		"addr", lis.Addr().String(),
		"backend", *backend,
		"academy", signer.Principal(),
		"key", signer.PublicKey())
	if err := s.Serve(lis); err != nil {
		log.Error("serve", "err", err)
		os.Exit(1)
	}
}
