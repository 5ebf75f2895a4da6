package localfs

import (
	"flag"
	"fmt"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/casregistry"
)

var flagLocalDir string

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem document store (directory)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagLocalDir, "localfs-dir", "", "LocalFS store directory (for --backend=localfs)")
		},
		Open: func() (storage.CAS, func() error, error) {
			if flagLocalDir == "" {
				return nil, nil, fmt.Errorf("missing --localfs-dir")
			}
			cas, err := New(flagLocalDir)
			return cas, nil, err
		},
	})
}
