package ipfs

import (
	"flag"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/casregistry"
)

var flagIPFSBin string

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "IPFS raw-block document store via the local Kubo CLI",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagIPFSBin, "ipfs-bin", "ipfs", "path to the Kubo ipfs binary (for --backend=ipfs)")
		},
		Open: func() (storage.CAS, func() error, error) {
			return New(Options{Bin: flagIPFSBin}), nil, nil
		},
	})
}
