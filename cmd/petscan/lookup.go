package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <barcode>",
	Short: "Look a product up by barcode",
	Long: `Look a product up in the local catalog and, unless --offline is set, the
remote product API. Products found remotely can be saved with --save.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		save, _ := cmd.Flags().GetBool("save")
		code := strings.TrimSpace(args[0])
		v := common.NewValidator().Field("barcode", code, common.Required, common.Barcode)
		if err := v.Error(); err != nil {
			return err
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Lookup.LookupProduct(ctx, code)
		if err != nil {
			return err
		}
		if save {
			if p, err = a.Products.Upsert(ctx, p); err != nil {
				return fmt.Errorf("save product: %w", err)
			}
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().Bool("save", false, "store the product in the local catalog")
}
