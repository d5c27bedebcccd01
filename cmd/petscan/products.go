package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/export"
	"github.com/joseph-ayodele/petfood-scanner/internal/lookup"
	"github.com/joseph-ayodele/petfood-scanner/internal/repository"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage the local product catalog",
}

var productsImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import product documents",
	Long: `Import a JSON file holding one product document or an array of them. Every
document is validated before anything is written; the import is all or
nothing. Products with a barcode replace the stored product with that barcode.`,
	Args: cobra.ExactArgs(1),
	RunE: runProductsImport,
}

var productsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to an XLSX workbook",
	RunE:  runProductsExport,
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog products",
	RunE:  runProductsList,
}

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.AddCommand(productsImportCmd, productsExportCmd, productsListCmd)

	productsImportCmd.Flags().String("source", constants.SourceImport, "data source recorded for imported products")

	ef := productsExportCmd.Flags()
	ef.StringP("output", "o", "products.xlsx", "output workbook path")
	ef.Bool("scans", false, "add a sheet with recent scans")
	ef.Int("scan-limit", 500, "number of recent scans to include")
	addFilterFlags(productsExportCmd)

	addFilterFlags(productsListCmd)
	productsListCmd.Flags().Int("limit", 50, "maximum number of products")
	productsListCmd.Flags().Bool("json", false, "print as JSON")
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("query", "q", "", "match name or brand")
	cmd.Flags().String("category", "", "dry, wet, treat, supplement or raw")
	cmd.Flags().String("source", "", "data source, e.g. open_food_facts or user_upload")
}

func filterFromFlags(cmd *cobra.Command) repository.ProductFilter {
	q, _ := cmd.Flags().GetString("query")
	cat, _ := cmd.Flags().GetString("category")
	src, _ := cmd.Flags().GetString("source")
	return repository.ProductFilter{Query: q, Category: cat, Source: src}
}

// decodeProducts validates and decodes a document or an array of documents.
func decodeProducts(data []byte, source string, now time.Time) ([]entity.FoodProduct, error) {
	var docs []json.RawMessage
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("decode product list: %w", err)
		}
	} else {
		docs = []json.RawMessage{data}
	}

	out := make([]entity.FoodProduct, 0, len(docs))
	for i, doc := range docs {
		if err := lookup.ValidateJSONAgainstSchema(lookup.ProductSchema, doc); err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		var p entity.FoodProduct
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.Nutrition.Source == "" {
			p.Nutrition.Source = source
		}
		if p.Nutrition.LastUpdated.IsZero() {
			p.Nutrition.LastUpdated = now
		}
		p.Nutrition.EnsureLists()
		out = append(out, p)
	}
	return out, nil
}

func runProductsImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	source, _ := cmd.Flags().GetString("source")
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	products, err := decodeProducts(data, source, time.Now().UTC())
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.Products.UpsertMany(ctx, products)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %s products from %s\n", humanize.Comma(int64(n)), filepath.Base(args[0]))
	return nil
}

func runProductsExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out, _ := cmd.Flags().GetString("output")
	withScans, _ := cmd.Flags().GetBool("scans")
	limit, _ := cmd.Flags().GetInt("scan-limit")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	xlsx, err := a.Export.ExportXLSX(ctx, export.Options{
		Filter:       filterFromFlags(cmd),
		IncludeScans: withScans,
		ScanLimit:    limit,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, xlsx, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", out, humanize.Bytes(uint64(len(xlsx))))
	return nil
}

func runProductsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOut, _ := cmd.Flags().GetBool("json")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	f := filterFromFlags(cmd)
	f.Limit = limit
	ps, err := a.Products.List(ctx, f)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(cmd.OutOrStdout(), ps)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "BARCODE\tNAME\tBRAND\tCATEGORY\tSOURCE\tQUALITY\tUPDATED")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.0f%%\t%s\n",
			p.Barcode, p.Name, p.Brand, p.Category, p.Nutrition.Source,
			p.Nutrition.DataQualityScore*100, humanize.Time(p.UpdatedAt))
	}
	return nil
}
