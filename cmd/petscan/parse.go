package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/app"
	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/nutrition"
	"github.com/joseph-ayodele/petfood-scanner/internal/ocr"
	"github.com/joseph-ayodele/petfood-scanner/internal/pipeline"
)

var parseCmd = &cobra.Command{
	Use:   "parse [label-file|-]",
	Short: "Extract nutrition data from a label",
	Long: `Parse a pet food label and print the extracted product name, brand,
guaranteed analysis, calorie content and ingredients together with a data
quality score.

The label may be a .txt file with recognized text, an image (run through the
configured OCR engine) or "-" to read text from stdin.`,
	Example: `  petscan parse label.txt
  petscan parse back-of-bag.jpg --json
  pbpaste | petscan parse -
  petscan parse 0123456789012.png --store`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().Bool("json", false, "print the result as JSON")
	parseCmd.Flags().Bool("store", false, "save the parsed label as a product in the catalog")
	parseCmd.Flags().String("barcode", "", "barcode to store the product under (default: taken from the file name)")
}

type parseOutput struct {
	Source     string                    `json:"source"`
	Method     string                    `json:"method"`
	Confidence float32                   `json:"confidence"`
	Parsed     nutrition.ParsedNutrition `json:"parsed"`
	Quality    nutrition.QualityReport   `json:"quality"`
	ProductID  *uuid.UUID                `json:"product_id,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	jsonOut, _ := cmd.Flags().GetBool("json")
	store, _ := cmd.Flags().GetBool("store")
	barcode, _ := cmd.Flags().GetString("barcode")
	src := args[0]

	cfg := loadConfig()
	res, err := readLabel(ctx, cfg.OCR, src)
	if err != nil {
		return err
	}
	parsed := nutrition.Parse(res.Text)
	out := parseOutput{
		Source:     src,
		Method:     res.Method,
		Confidence: res.Confidence,
		Parsed:     parsed,
		Quality:    parsed.Quality(),
	}

	if store {
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if barcode == "" && src != "-" {
			barcode = pipeline.BarcodeFromName(src)
		}
		fp := parsed.ToFoodProduct(uuid.New(), barcode, time.Now().UTC())
		if fp.Name == "" && src != "-" {
			fp.Name = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		}
		saved, err := a.Products.Upsert(ctx, &fp)
		if err != nil {
			return fmt.Errorf("store product: %w", err)
		}
		out.ProductID = &saved.ID
	}

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), out)
	}
	printParsed(cmd.OutOrStdout(), out)
	return nil
}

// readLabel returns recognized text for a label source: stdin, a text file or
// an image run through OCR.
func readLabel(ctx context.Context, cfg common.OCRConfig, src string) (ocr.Result, error) {
	if src == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return ocr.Result{}, fmt.Errorf("read stdin: %w", err)
		}
		return ocr.Result{Text: ocr.Normalize(string(b)), SourceType: constants.TXT, Method: "text", Confidence: 1}, nil
	}
	ex, rec, err := app.Recognizers(ctx, cfg, slog.Default())
	if err != nil {
		return ocr.Result{}, err
	}
	if c, ok := rec.(io.Closer); ok {
		defer c.Close()
	}
	ext := filepath.Ext(src)
	if cfg.Engine != "vision" || constants.MapExtToFormat(ext) != constants.IMAGE || constants.IsHEIC(ext) {
		return ex.Extract(ctx, src)
	}
	img, err := os.ReadFile(src)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("read label image: %w", err)
	}
	return rec.Recognize(ctx, img)
}

func printParsed(w io.Writer, out parseOutput) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	defer tw.Flush()
	p := out.Parsed
	row := func(k, v string) { fmt.Fprintf(tw, "%s\t%s\n", k, v) }

	row("Product", deref(p.ProductName))
	row("Brand", deref(p.Brand))
	row("Protein", pct(p.Protein))
	row("Fat", pct(p.Fat))
	row("Fiber", pct(p.Fiber))
	row("Moisture", pct(p.Moisture))
	row("Ash", pct(p.Ash))
	row("kcal/kg", num(p.CaloriesPerMassUnit))
	row("kcal/serving", num(p.CaloriesPerServingUnit))
	row("Ingredients", strings.Join(p.Ingredients, ", "))
	row("Quality", fmt.Sprintf("%.0f%% (missing: %s)", out.Quality.Overall*100, strings.Join(out.Quality.Missing, ", ")))
	row("OCR", fmt.Sprintf("%s, confidence %.2f", out.Method, out.Confidence))
	if out.ProductID != nil {
		row("Stored as", out.ProductID.String())
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func pct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g%%", *v)
}

func num(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
