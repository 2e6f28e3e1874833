package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sharethrift/searchindex/internal/output"
	"github.com/sharethrift/searchindex/internal/reconcile"
	"github.com/sharethrift/searchindex/internal/schema"
)

type documentHash struct {
	Key  string `json:"key"`
	Hash string `json:"hash"`
}

func newHashCmd(a *app) *cobra.Command {
	var jsonOutput bool
	var exclude []string

	cmd := &cobra.Command{
		Use:   "hash <fixture>",
		Short: "Print the change-detection hash of each fixture document",
		Long: `Print the content hash used to skip unchanged documents.

The fields updatedAt, lastIndexed and hash never affect the result.
Use --exclude to ignore further top-level fields.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := LoadFixture(args[0])
			if err != nil {
				return err
			}
			hashes, err := hashDocuments(reconcile.NewHasher(exclude...), fx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), hashes)
			}
			out := output.New(cmd.OutOrStdout())
			for _, h := range hashes {
				out.KeyValue(h.Key, h.Hash)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Additional fields to leave out of the hash")

	return cmd
}

func hashDocuments(h *reconcile.Hasher, fx *Fixture) ([]documentHash, error) {
	out := make([]documentHash, 0, len(fx.Documents))
	for _, doc := range fx.Documents {
		key, err := schema.KeyOf(fx.Index, doc)
		if err != nil {
			return nil, err
		}
		sum, err := h.Hash(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, documentHash{Key: key, Hash: sum})
	}
	return out, nil
}
